package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"propledger/internal/clients"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ExportStatus is the redis-persisted state of one async ledger export.
type ExportStatus struct {
	Key      string    `json:"key"`
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	Filters  any       `json:"filters"`
	Progress float64   `json:"progress"`
	FileURL  *string   `json:"file_url"`
	Error    *string   `json:"error,omitempty"`
	Created  time.Time `json:"created_at"`
}

const (
	exportSetKey  = "export_ids"
	exportTTL     = 20 * time.Minute
	maxExportRows = 500_000
)

// ExportService runs xlsx exports of the ledger in the background, tracking
// progress in redis and pushing progress events to the requesting operator's
// websocket sessions.
type ExportService struct {
	redis   *clients.RedisClient
	storage *clients.StorageClient
	ws      *clients.WebSocketClient
}

func NewExportService(redis *clients.RedisClient, storage *clients.StorageClient, ws *clients.WebSocketClient) *ExportService {
	return &ExportService{redis: redis, storage: storage, ws: ws}
}

func (s *ExportService) saveStatus(ctx context.Context, st *ExportStatus) error {
	if s.redis == nil {
		return nil
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, st.Key, string(data), exportTTL); err != nil {
		return err
	}
	return s.redis.SAdd(ctx, exportSetKey, st.Key)
}

// start registers a new export job and returns its status record.
func (s *ExportService) start(ctx context.Context, exportType string, filters any, userID int64) (*ExportStatus, error) {
	st := &ExportStatus{
		Key:     fmt.Sprintf("exports:%s", uuid.NewString()),
		Type:    exportType,
		UserID:  userID,
		Filters: filters,
		Created: time.Now(),
	}
	if err := s.saveStatus(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *ExportService) progress(ctx context.Context, st *ExportStatus, progress float64, stage string) {
	st.Progress = progress
	_ = s.saveStatus(ctx, st)
	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, st.UserID, st.Key, progress, stage)
	}
}

func (s *ExportService) fail(ctx context.Context, st *ExportStatus, err error) {
	msg := err.Error()
	log.Printf("export %s: %s", st.Key, msg)
	st.Error = &msg
	st.Progress = 100
	_ = s.saveStatus(ctx, st)
	if s.ws != nil {
		_ = s.ws.NotifyExportFailed(ctx, st.UserID, st.Key, msg)
	}
}

// finish writes the workbook to local storage, marks the job complete and
// notifies the operator with the download URL.
func (s *ExportService) finish(ctx context.Context, st *ExportStatus, f *excelize.File, fileName string) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		s.fail(ctx, st, fmt.Errorf("write workbook: %w", err))
		return
	}

	s.progress(ctx, st, 95, "saving")

	saved, err := s.storage.Save(ctx, fileName, buf.Bytes())
	if err != nil {
		s.fail(ctx, st, fmt.Errorf("save export failed: %w", err))
		return
	}

	url := s.storage.GetURL(saved)
	st.FileURL = &url
	st.Progress = 100
	_ = s.saveStatus(ctx, st)
	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, st.UserID, st.Key, 100, "ready")
		_ = s.ws.NotifyExportComplete(ctx, st.UserID, st.Key, url, fileName)
	}
}

// writeSheet fills the workbook from the column set, reporting progress in
// thousand-row chunks.
func writeSheet[T any](ctx context.Context, s *ExportService, st *ExportStatus, f *excelize.File, sheet string, cols []exportColumn[T], items []T) {
	f.SetSheetName(f.GetSheetName(0), sheet)
	_ = f.SetDocProps(&excelize.DocProperties{Creator: fmt.Sprintf("user_%d", st.UserID)})

	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, col.Header)
	}

	total := len(items)
	for i, item := range items {
		for colIdx, col := range cols {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, i+2)
			_ = f.SetCellValue(sheet, cell, col.Value(item))
		}
		if total > 0 && ((i+1)%1000 == 0 || i == total-1) {
			p := float64(i+1) / float64(total) * 100.0
			if p >= 100 {
				p = 90
			}
			s.progress(ctx, st, p, "generating")
		}
	}
}

type exportColumn[T any] struct {
	Header string
	Value  func(T) any
}

// selectColumns resolves the requested field keys against the column map,
// falling back to all known fields when none were requested.
func selectColumns[T any](all map[string]exportColumn[T], order []string, selected []string) []exportColumn[T] {
	if len(selected) == 0 {
		selected = order
	}
	var cols []exportColumn[T]
	for _, key := range selected {
		col, ok := all[key]
		if !ok {
			continue
		}
		cols = append(cols, col)
	}
	return cols
}

// GetExports lists the requesting operator's export jobs, newest first.
func (s *ExportService) GetExports(ctx context.Context, userID int64) ([]map[string]any, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	keys, err := s.redis.SMembers(ctx, exportSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get export keys: %w", err)
	}

	var statuses []ExportStatus
	for _, key := range keys {
		data, err := s.redis.Get(ctx, key)
		if err != nil {
			continue
		}
		var st ExportStatus
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			continue
		}
		if st.UserID == userID {
			statuses = append(statuses, st)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Created.After(statuses[j].Created)
	})

	out := make([]map[string]any, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, exportMap(st))
	}
	return out, nil
}

func (s *ExportService) GetExport(ctx context.Context, exportID string, userID int64) (map[string]any, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	data, err := s.redis.Get(ctx, exportID)
	if err != nil {
		return nil, errors.New("export not found")
	}

	var st ExportStatus
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("failed to parse export status: %w", err)
	}
	if st.UserID != userID {
		return nil, errors.New("export not found")
	}
	return exportMap(st), nil
}

func exportMap(st ExportStatus) map[string]any {
	return map[string]any{
		"key":        st.Key,
		"type":       st.Type,
		"user_id":    st.UserID,
		"progress":   st.Progress,
		"file_url":   st.FileURL,
		"error":      st.Error,
		"filters":    st.Filters,
		"created_at": humanizeAgo(st.Created),
	}
}

func humanizeAgo(t time.Time) string {
	diff := time.Since(t)
	minutes := int(diff.Minutes())
	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%d min ago", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%d h ago", minutes/60)
	default:
		return t.Format("02.01.2006 15:04")
	}
}

func timePtr(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.Format("2006-01-02 15:04:05")
}

func strPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
