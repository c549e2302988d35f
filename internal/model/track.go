// Package model содержит модели данных.
package model

import "strings"

// Track представляет трек из каталога в порядке плейлиста
type Track struct {
	ID      string   // Spotify Track ID
	Title   string   // Название трека
	Artists []string // Исполнители в порядке из каталога
}

// ArtistLine возвращает исполнителей одной строкой
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Asset представляет скачанный аудиофайл одного трека.
// Живет только на время одной попытки доставки и удаляется
// движком независимо от результата.
type Asset struct {
	Path    string // Путь к файлу
	Dir     string // Директория вызова загрузчика, пустая для найденных файлов
	Size    int64  // Размер в байтах
	TrackID string // Трек, для которого скачан файл
}
