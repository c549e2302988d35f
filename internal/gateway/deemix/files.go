// Package deemix содержит поиск аудиофайлов на диске.
package deemix

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".opus": true,
}

// isAudioFile проверяет расширение аудиофайла
func isAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// scanAudioFiles возвращает все аудиофайлы в директории рекурсивно
func scanAudioFiles(dir string) []string {
	var files []string

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && isAudioFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})

	return files
}

// findRecentTrackFile ищет недавний аудиофайл, имя которого содержит
// первые два слова названия трека. Сопоставление приблизительное:
// по подстроке, без учета регистра и диакритики.
func findRecentTrackFile(dir, title string, maxAge time.Duration) (string, bool) {
	if dir == "" {
		return "", false
	}

	words := titleWords(title, 2)
	if len(words) == 0 {
		return "", false
	}

	now := time.Now()
	var found string

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found != "" {
			return nil
		}
		if d.IsDir() || !isAudioFile(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil || now.Sub(info.ModTime()) > maxAge {
			return nil
		}

		name := normalizeName(d.Name())
		for _, word := range words {
			if strings.Contains(name, word) {
				found = path
				return nil
			}
		}
		return nil
	})

	return found, found != ""
}

// titleWords возвращает первые n нормализованных слов названия
func titleWords(title string, n int) []string {
	fields := strings.Fields(normalizeName(title))
	if len(fields) > n {
		fields = fields[:n]
	}
	return fields
}

// normalizeName приводит строку к нижнему регистру и убирает диакритику
func normalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := transform.String(t, s)
	if err != nil {
		normalized = s
	}
	return strings.ToLower(normalized)
}

// fileSize возвращает размер файла, 0 при ошибке
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
