// Package export renders channel lists as CSV or XLSX downloads and optionally
// archives each rendered file to a blob store.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/crawler"
)

// Format selects the output encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

const sheetName = "Channels"

// ParseFormat maps the query value; anything but "csv" is Excel.
func ParseFormat(raw string) Format {
	if strings.EqualFold(strings.TrimSpace(raw), string(FormatCSV)) {
		return FormatCSV
	}
	return FormatExcel
}

// Headers is the fixed column order of every export.
var Headers = []string{
	"Title", "Channel URL", "Country", "Country Code", "Subscribers", "Total Views",
	"Video Count", "Search Keyword", "Priority Score", "Emailed", "Emailed By", "Emailed At",
	"Reply Received", "Replied By", "Replied At", "Notes", "Fetched At",
}

// File is one rendered export.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// Render encodes channels in format.
func Render(format Format, channels []crawler.Channel) (File, error) {
	switch format {
	case FormatCSV:
		data, err := renderCSV(channels)
		if err != nil {
			return File{}, err
		}
		return File{Name: "youtube_channels.csv", ContentType: "text/csv", Data: data, Rows: len(channels)}, nil
	default:
		data, err := renderXLSX(channels)
		if err != nil {
			return File{}, err
		}
		return File{
			Name:        "youtube_channels.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
			Rows:        len(channels),
		}, nil
	}
}

func record(ch crawler.Channel) []any {
	return []any{
		ch.Title, ch.ChannelURL, ch.Country, ch.CountryCode,
		ch.Subscribers, ch.TotalViews, ch.VideoCount, ch.SearchKeyword,
		ch.PriorityScore, yesNo(ch.Emailed), ch.EmailedByUsername, stamp(ch.EmailedAt),
		yesNo(ch.ReplyReceived), ch.RepliedByUsername, stamp(ch.RepliedAt), ch.Notes,
		stamp(&ch.FetchedAt),
	}
}

func renderCSV(channels []crawler.Channel) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Headers); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(Headers))
	for _, ch := range channels {
		for i, v := range record(ch) {
			row[i] = cell(v)
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXLSX(channels []crawler.Channel) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, ch := range channels {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := record(ch)
		if err := f.SetSheetRow(sheetName, axis, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func stamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateTime)
}

// Archiver stores rendered exports under content-addressed names.
type Archiver struct {
	blobs  crawler.BlobStore
	hasher crawler.Hasher
	clock  crawler.Clock
	logger *zap.Logger
}

// NewArchiver wires an Archiver. A nil blob store disables archiving.
func NewArchiver(blobs crawler.BlobStore, hasher crawler.Hasher, clock crawler.Clock, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{blobs: blobs, hasher: hasher, clock: clock, logger: logger.Named("export")}
}

// Enabled reports whether Archive stores anything.
func (a *Archiver) Enabled() bool {
	return a != nil && a.blobs != nil
}

// ObjectPath names the archive object: exports/YYYY/MM/DD/<digest prefix>-<file name>.
func ObjectPath(digest string, now time.Time, name string) string {
	if len(digest) > 16 {
		digest = digest[:16]
	}
	return fmt.Sprintf("exports/%s/%s-%s", now.UTC().Format("2006/01/02"), digest, name)
}

// Archive uploads f and returns its URI. It returns "" when archiving is disabled.
func (a *Archiver) Archive(ctx context.Context, f File) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if a.hasher == nil || a.clock == nil {
		return "", errors.New("archiver needs a hasher and a clock")
	}
	digest, err := a.hasher.Hash(f.Data)
	if err != nil {
		return "", fmt.Errorf("hash export: %w", err)
	}
	path := ObjectPath(digest, a.clock.Now(), f.Name)
	uri, err := a.blobs.PutObject(ctx, path, f.ContentType, f.Data)
	if err != nil {
		return "", fmt.Errorf("archive export: %w", err)
	}
	a.logger.Info("export archived", zap.String("uri", uri), zap.Int("rows", f.Rows))
	return uri, nil
}
