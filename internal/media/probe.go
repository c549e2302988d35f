// Package media содержит чтение метаданных аудиофайлов.
package media

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// Info представляет метаданные аудиофайла
type Info struct {
	Title           string
	Artist          string
	DurationSeconds int
}

// Probe читает теги и длительность аудиофайла. Чтение метаданных
// необязательно для доставки, поэтому любые ошибки деградируют
// до нулевых значений.
func Probe(path string) Info {
	var info Info

	if f, err := os.Open(path); err == nil {
		if meta, err := tag.ReadFrom(f); err == nil {
			info.Title = strings.TrimSpace(meta.Title())
			info.Artist = strings.TrimSpace(meta.Artist())
		}
		_ = f.Close()
	}

	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		if dur, err := mp3Duration(path); err == nil && dur > 0 {
			info.DurationSeconds = int(dur)
		}
	}

	return info
}

// mp3Duration считает длительность mp3 по фреймам
func mp3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}

	return total, nil
}
