package fields

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"zabbix_input/internal/verr"
)

// Тексты сообщений служат ключами каталога переводов
const (
	msgMandatory      = "Field \"%s\" is mandatory."
	msgMustBeMissing  = "Field \"%s\" must be missing."
	msgUnauthorized   = "Operation cannot be performed due to unauthorized request."
	msgNotIP          = "Field \"%s\" is not IP."
	msgNotIPRange     = "Field \"%s\" is not IP range."
	msgNotIntRange    = "Field \"%s\" is not integer list or range."
	msgNotInt         = "Field \"%s\" is not integer."
	msgNotDecimal     = "Field \"%s\" is not decimal number."
	msgNotPortList    = "Field \"%s\" is not port list."
	msgBadColor       = "Colour \"%s\" is not correct: expecting hexadecimal colour code (6 symbols)."
	msgDecimalFormat  = "Value \"%s\" of \"%s\" has incorrect decimal format."
	msgDecimalNatural = "Value \"%s\" of \"%s\" has too many digits before the decimal point: it cannot exceed %s digits."
	msgDecimalScale   = "Value \"%s\" of \"%s\" has too many digits after the decimal point: it cannot exceed %s digits."
	msgEmpty          = "Incorrect value for field \"%s\": cannot be empty."
	msgBetween        = "Incorrect value \"%s\" for \"%s\" field: must be between %s and %s."
	msgIncorrect      = "Incorrect value \"%s\" for \"%s\" field."

	// MsgIncorrectRequest текст страницы фатальной ошибки
	MsgIncorrectRequest = "Zabbix has received an incorrect request."
	// MsgIncorrectData заголовок блока предупреждений
	MsgIncorrectData = "Page received incorrect data"
)

// ruMessages русский каталог сообщений
var ruMessages = map[string]string{
	msgMandatory:        "Поле \"%s\" обязательно.",
	msgMustBeMissing:    "Поле \"%s\" должно отсутствовать.",
	msgUnauthorized:     "Операция не может быть выполнена из-за неавторизованного запроса.",
	msgNotIP:            "Поле \"%s\" не является IP адресом.",
	msgNotIPRange:       "Поле \"%s\" не является диапазоном IP адресов.",
	msgNotIntRange:      "Поле \"%s\" не является списком или диапазоном целых чисел.",
	msgNotInt:           "Поле \"%s\" не является целым числом.",
	msgNotDecimal:       "Поле \"%s\" не является десятичным числом.",
	msgNotPortList:      "Поле \"%s\" не является списком портов.",
	msgBadColor:         "Цвет \"%s\" некорректен: ожидается шестнадцатеричный код цвета (6 символов).",
	msgDecimalFormat:    "Значение \"%s\" поля \"%s\" имеет некорректный десятичный формат.",
	msgDecimalNatural:   "Значение \"%s\" поля \"%s\" содержит слишком много цифр до десятичной точки: не более %s.",
	msgDecimalScale:     "Значение \"%s\" поля \"%s\" содержит слишком много цифр после десятичной точки: не более %s.",
	msgEmpty:            "Некорректное значение поля \"%s\": не может быть пустым.",
	msgBetween:          "Некорректное значение \"%s\" поля \"%s\": должно быть между %s и %s.",
	msgIncorrect:        "Некорректное значение \"%s\" поля \"%s\".",
	MsgIncorrectRequest: "Zabbix получил некорректный запрос.",
	MsgIncorrectData:    "Страница получила некорректные данные",
}

var registerOnce sync.Once

// setStrings регистрирует переводы; ошибка содержит ключ сообщения
func setStrings(set func(language.Tag, string, string) error, tag language.Tag, translations map[string]string) error {
	for key, tr := range translations {
		if err := set(tag, key, tr); err != nil {
			return fmt.Errorf("message %q: %w", key, err)
		}
	}
	return nil
}

func registerCatalog() {
	registerOnce.Do(func() {
		if err := setStrings(message.SetString, language.Russian, ruMessages); err != nil {
			panic(fmt.Sprintf("fields: invalid message catalog: %v", err))
		}
	})
}

// NewPrinter возвращает принтер сообщений для языка вида "en_GB", "ru_RU"
func NewPrinter(lang string) *message.Printer {
	registerCatalog()

	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		tag = language.English
	}
	matcher := language.NewMatcher([]language.Tag{language.English, language.Russian})
	_, idx, _ := matcher.Match(tag)
	if idx == 1 {
		return message.NewPrinter(language.Russian)
	}
	return message.NewPrinter(language.English)
}

// MessageSink получатель сообщений проверки
type MessageSink interface {
	Report(e *verr.FieldError)
}

// MessageList накапливает сообщения в порядке поступления
type MessageList struct {
	items verr.List
}

// Report добавляет сообщение
func (m *MessageList) Report(e *verr.FieldError) {
	m.items = append(m.items, e)
}

// List возвращает накопленные сообщения
func (m *MessageList) List() verr.List {
	return m.items
}
