package zabbix

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	// Zabbix Sender протокол
	senderHeader    = "ZBXD\x01"
	senderDataLen   = 8
	maxResponseSize = 1024 * 1024
)

// SenderData представляет данные для отправки через Zabbix Sender
type SenderData struct {
	Host  string `json:"host"`
	Key   string `json:"key"`
	Value string `json:"value"`
	Clock int64  `json:"clock,omitempty"`
}

// SenderRequest представляет запрос Zabbix Sender
type SenderRequest struct {
	Request string       `json:"request"`
	Data    []SenderData `json:"data"`
	Clock   int64        `json:"clock,omitempty"`
}

// SenderResponse представляет ответ Zabbix Sender
type SenderResponse struct {
	Response string `json:"response"`
	Info     string `json:"info,omitempty"`
}

// Sender реализует Zabbix Sender протокол
type Sender struct {
	addr    string
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewSender создает новый Zabbix Sender
func NewSender(serverHost string, serverPort int, timeout time.Duration, logger *zap.Logger) *Sender {
	return &Sender{
		addr:    net.JoinHostPort(serverHost, strconv.Itoa(serverPort)),
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// SendData отправляет данные через Zabbix Sender протокол
func (s *Sender) SendData(ctx context.Context, data []SenderData) (*SenderResponse, error) {
	if len(data) == 0 {
		return &SenderResponse{Response: "success"}, nil
	}

	s.logger.Debug("Sending data via Zabbix Sender",
		zap.String("addr", s.addr),
		zap.Int("items", len(data)))

	request := SenderRequest{
		Request: "sender data",
		Data:    data,
		Clock:   s.now().Unix(),
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sender request: %w", err)
	}

	response, err := s.sendPacket(ctx, buildPacket(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send packet: %w", err)
	}

	var senderResp SenderResponse
	if err := json.Unmarshal(response, &senderResp); err != nil {
		return nil, fmt.Errorf("failed to parse sender response: %w", err)
	}

	if senderResp.Response != "success" {
		return &senderResp, fmt.Errorf("zabbix sender error: %s", senderResp.Info)
	}

	s.logger.Debug("Successfully sent data via Zabbix Sender",
		zap.String("info", senderResp.Info))

	return &senderResp, nil
}

// buildPacket: заголовок, длина данных (little-endian uint64), данные
func buildPacket(data []byte) []byte {
	packet := make([]byte, 0, len(senderHeader)+senderDataLen+len(data))
	packet = append(packet, senderHeader...)
	packet = binary.LittleEndian.AppendUint64(packet, uint64(len(data)))
	return append(packet, data...)
}

// sendPacket отправляет пакет на Zabbix сервер и возвращает ответ
func (s *Sender) sendPacket(ctx context.Context, packet []byte) ([]byte, error) {
	dialer := &net.Dialer{Timeout: s.timeout}

	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zabbix server: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return nil, fmt.Errorf("failed to set connection deadline: %w", err)
	}

	if _, err := conn.Write(packet); err != nil {
		return nil, fmt.Errorf("failed to write packet: %w", err)
	}

	response, err := readPacket(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return response, nil
}

// readPacket читает один пакет протокола
func readPacket(r io.Reader) ([]byte, error) {
	header := make([]byte, len(senderHeader)+senderDataLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if !bytes.Equal(header[:len(senderHeader)], []byte(senderHeader)) {
		return nil, fmt.Errorf("invalid response header: %q", header[:len(senderHeader)])
	}

	dataLen := binary.LittleEndian.Uint64(header[len(senderHeader):])
	if dataLen > maxResponseSize {
		return nil, fmt.Errorf("response data too large: %d bytes", dataLen)
	}

	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read response data: %w", err)
	}

	return data, nil
}
