package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// FileSink stores each record as zstd-compressed JSON in a directory per
// day.
type FileSink struct {
	dir string
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create record directory: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &FileSink{dir: dir, enc: enc, dec: dec}, nil
}

// Path is where the record is stored.
func (s *FileSink) Path(rec Record) string {
	return filepath.Join(s.dir, rec.SubmittedAt.Format("2006-01-02"), rec.ID+".json.zst")
}

func (s *FileSink) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	path := s.Path(rec)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}
	// write then rename so readers never see a partial record
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, s.enc.EncodeAll(body, nil), 0o644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Load reads a record written by Save.
func (s *FileSink) Load(path string) (Record, error) {
	var rec Record
	compressed, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	body, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return rec, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return rec, nil
}
