package isolate

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Isolate status codes found in the meta file.
const (
	StatusRuntimeError = "RE"
	StatusSignal       = "SG"
	StatusTimeout      = "TO"
	StatusInternal     = "XX"
)

type Metrics struct {
	TimeSec      float64
	TimeWallSec  float64
	MaxRssKb     int64
	CswVoluntary int64
	CswForced    int64
	CgMemKb      int64
	ExitCode     int64
	ExitSignal   *int64
	Killed       bool
	CgOomKilled  bool
	Status       string
	Message      string
}

func (m *Metrics) TimedOut() bool {
	return m.Status == StatusTimeout
}

// MemKb prefers the control group figure when present.
func (m *Metrics) MemKb() int64 {
	if m.CgMemKb > 0 {
		return m.CgMemKb
	}
	return m.MaxRssKb
}

// parseMetaFile reads the key:value lines isolate writes with --meta.
func parseMetaFile(content []byte) (*Metrics, error) {
	m := &Metrics{}
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed meta line %q", line)
		}
		var err error
		switch key {
		case "time":
			m.TimeSec, err = strconv.ParseFloat(value, 64)
		case "time-wall":
			m.TimeWallSec, err = strconv.ParseFloat(value, 64)
		case "max-rss":
			m.MaxRssKb, err = strconv.ParseInt(value, 10, 64)
		case "csw-voluntary":
			m.CswVoluntary, err = strconv.ParseInt(value, 10, 64)
		case "csw-forced":
			m.CswForced, err = strconv.ParseInt(value, 10, 64)
		case "cg-mem":
			m.CgMemKb, err = strconv.ParseInt(value, 10, 64)
		case "exitcode":
			m.ExitCode, err = strconv.ParseInt(value, 10, 64)
		case "exitsig":
			var sig int64
			sig, err = strconv.ParseInt(value, 10, 64)
			m.ExitSignal = &sig
		case "killed":
			m.Killed = value == "1"
		case "cg-oom-killed":
			m.CgOomKilled = value == "1"
		case "status":
			m.Status = value
		case "message":
			m.Message = value
		}
		if err != nil {
			return nil, fmt.Errorf("meta %s: %w", key, err)
		}
	}
	return m, sc.Err()
}
