// Package spotify содержит типы для работы с Spotify API.
package spotify

// PlaylistInfo содержит информацию о плейлисте Spotify
type PlaylistInfo struct {
	ID          string
	Name        string
	Description string
	TotalTracks int
	Owner       string
}
