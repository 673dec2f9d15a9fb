package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/model"
)

const maxLineBytes = 1 << 20

func isMalformed(err error) bool {
	return errors.Is(err, common.ErrMalformedRow)
}

// jsonlSource reads one {"sender","body","timestamp_ms"} object per line.
type jsonlSource struct {
	nopCloser
	reader *bufio.Reader
	line   int
}

type jsonMessage struct {
	Sender      string `json:"sender"`
	Body        string `json:"body"`
	TimestampMS int64  `json:"timestamp_ms"`
}

func newJSONLSource(r io.Reader) *jsonlSource {
	return &jsonlSource{reader: bufio.NewReaderSize(r, 64*1024)}
}

func (s *jsonlSource) Next(ctx context.Context) (model.RawMessage, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.RawMessage{}, err
		}
		raw, tooLong, err := s.readLine()
		if errors.Is(err, io.EOF) {
			return model.RawMessage{}, io.EOF
		}
		if err != nil {
			return model.RawMessage{}, fmt.Errorf("failed to read message lines: %w", err)
		}
		s.line++
		if tooLong {
			return model.RawMessage{}, malformed(s.line, "line exceeds %d bytes", maxLineBytes)
		}
		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}

		var jm jsonMessage
		if err := json.Unmarshal([]byte(line), &jm); err != nil {
			return model.RawMessage{}, malformed(s.line, "%v", err)
		}
		msg := model.RawMessage{Sender: jm.Sender, Body: jm.Body, Timestamp: fromMillis(jm.TimestampMS)}
		if err := checkMessage(s.line, msg); err != nil {
			return model.RawMessage{}, err
		}
		return msg, nil
	}
}

// readLine returns the next line. A line longer than maxLineBytes is consumed and
// discarded so the rows after it can still be read.
func (s *jsonlSource) readLine() ([]byte, bool, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		switch {
		case err == nil:
			return buf, tooLong, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(buf) == 0 && !tooLong {
				return nil, false, io.EOF
			}
			return buf, tooLong, nil
		default:
			return nil, false, err
		}
	}
}

// csvSource reads rows with a header naming sender, timestamp_ms and body in any order.
type csvSource struct {
	nopCloser
	reader *csv.Reader
	cols   map[string]int
	row    int
}

var csvColumns = []string{"sender", "timestamp_ms", "body"}

func newCSVSource(r io.Reader) (*csvSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, want := range csvColumns {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("%w: csv header is missing column %q", common.ErrUnknownFormat, want)
		}
	}
	return &csvSource{reader: cr, cols: cols, row: 1}, nil
}

func (s *csvSource) Next(ctx context.Context) (model.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return model.RawMessage{}, err
	}

	record, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return model.RawMessage{}, io.EOF
	}
	s.row++
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return model.RawMessage{}, malformed(s.row, "%v", err)
		}
		return model.RawMessage{}, fmt.Errorf("failed to read csv: %w", err)
	}

	field := func(name string) (string, bool) {
		i := s.cols[name]
		if i >= len(record) {
			return "", false
		}
		return record[i], true
	}

	sender, _ := field("sender")
	body, ok := field("body")
	if !ok {
		return model.RawMessage{}, malformed(s.row, "expected %d fields, got %d", len(s.cols), len(record))
	}
	rawTS, _ := field("timestamp_ms")
	ms, err := strconv.ParseInt(strings.TrimSpace(rawTS), 10, 64)
	if err != nil {
		return model.RawMessage{}, malformed(s.row, "bad timestamp %q", rawTS)
	}

	msg := model.RawMessage{Sender: sender, Body: body, Timestamp: fromMillis(ms)}
	if err := checkMessage(s.row, msg); err != nil {
		return model.RawMessage{}, err
	}
	return msg, nil
}

// xmlSource streams <sms> elements of an SMS Backup & Restore export. Only received
// messages (type 1) are yielded.
type xmlSource struct {
	nopCloser
	decoder *xml.Decoder
	row     int
}

type smsElement struct {
	Address string `xml:"address,attr"`
	Date    string `xml:"date,attr"`
	Body    string `xml:"body,attr"`
	Type    string `xml:"type,attr"`
}

const smsReceived = "1"

func newXMLSource(r io.Reader) *xmlSource {
	d := xml.NewDecoder(r)
	d.Strict = false
	return &xmlSource{decoder: d}
}

func (s *xmlSource) Next(ctx context.Context) (model.RawMessage, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.RawMessage{}, err
		}

		tok, err := s.decoder.Token()
		if errors.Is(err, io.EOF) {
			return model.RawMessage{}, io.EOF
		}
		if err != nil {
			return model.RawMessage{}, fmt.Errorf("failed to parse sms backup: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "sms" {
			continue
		}
		s.row++

		var el smsElement
		if err := s.decoder.DecodeElement(&el, &start); err != nil {
			return model.RawMessage{}, fmt.Errorf("failed to decode sms element %d: %w", s.row, err)
		}
		if el.Type != smsReceived {
			continue
		}

		ms, err := strconv.ParseInt(strings.TrimSpace(el.Date), 10, 64)
		if err != nil {
			return model.RawMessage{}, malformed(s.row, "bad date %q", el.Date)
		}
		msg := model.RawMessage{Sender: el.Address, Body: el.Body, Timestamp: fromMillis(ms)}
		if err := checkMessage(s.row, msg); err != nil {
			return model.RawMessage{}, err
		}
		return msg, nil
	}
}
