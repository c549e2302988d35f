// Package deemix реализует загрузку треков через deemix CLI.
//
// Deemix общается с нами только кодом выхода и файлами на диске,
// поэтому успех определяется сканированием директории вызова и,
// как последнее средство, эвристическим поиском по имени файла.
package deemix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"trackcourier/internal/config"
	"trackcourier/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	searchBaseURL   = "https://api.deezer.com"
	fallbackFileAge = time.Hour
)

// Client представляет клиент загрузки треков через deemix
type Client struct {
	deemixPath   string
	downloadDir  string
	musicDir     string
	bitrate      string
	timeout      time.Duration
	arlToken     string
	arlPath      string
	settingsPath string
	searchURL    string
	httpClient   *http.Client
	logger       *zap.Logger
}

var _ Interface = (*Client)(nil)

// NewClient создает новый клиент deemix
func NewClient(cfg config.AcquisitionConfig, logger *zap.Logger) *Client {
	home, _ := os.UserHomeDir()

	musicDir := cfg.MusicDir
	if musicDir == "" && home != "" {
		musicDir = filepath.Join(home, "Music")
	}

	client := &Client{
		deemixPath:   cfg.DeemixPath,
		downloadDir:  cfg.DownloadDir,
		musicDir:     musicDir,
		bitrate:      cfg.Bitrate,
		timeout:      cfg.Timeout,
		arlToken:     cfg.DeezerARL,
		arlPath:      filepath.Join(home, ".config", "deemix", ".arl"),
		settingsPath: filepath.Join(home, ".config", "deemix", "config.json"),
		searchURL:    searchBaseURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
	}

	// ARL из окружения имеет приоритет, иначе пробуем файл deemix
	if client.arlToken == "" {
		client.loadARL()
	}

	return client
}

// Configured проверяет, настроен ли ARL токен
func (c *Client) Configured() bool {
	return c.arlToken != ""
}

// SetARL сохраняет ARL токен в конфигурацию deemix
func (c *Client) SetARL(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty ARL token")
	}

	if err := os.MkdirAll(filepath.Dir(c.arlPath), 0755); err != nil {
		return fmt.Errorf("failed to create deemix config dir: %w", err)
	}

	if err := os.WriteFile(c.arlPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write ARL file: %w", err)
	}

	c.arlToken = token

	if err := c.pinQualitySettings(); err != nil {
		c.logger.Warn("Failed to update deemix settings", zap.Error(err))
	}

	c.logger.Info("Deezer ARL configured")
	return nil
}

// loadARL загружает ARL из файла конфигурации deemix
func (c *Client) loadARL() {
	data, err := os.ReadFile(c.arlPath)
	if err != nil {
		return
	}
	c.arlToken = strings.TrimSpace(string(data))
}

// pinQualitySettings фиксирует битрейт для бесплатных аккаунтов
// в настройках deemix
func (c *Client) pinQualitySettings() error {
	settings := map[string]any{}

	if data, err := os.ReadFile(c.settingsPath); err == nil {
		_ = json.Unmarshal(data, &settings)
	}

	settings["maxBitrate"] = c.bitrate
	settings["fallbackBitrate"] = true
	settings["fallbackSearch"] = true

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal deemix settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.settingsPath), 0755); err != nil {
		return fmt.Errorf("failed to create deemix config dir: %w", err)
	}

	return os.WriteFile(c.settingsPath, data, 0644)
}

// Fetch скачивает трек и возвращает дескриптор файла.
// Каждый вызов получает собственную поддиректорию, поэтому поиск
// нового файла сводится к точному сканированию этой директории.
func (c *Client) Fetch(ctx context.Context, title, artist string) (*model.Asset, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	trackURL, err := c.searchTrack(ctx, title, artist)
	if err != nil {
		return nil, err
	}

	invocationDir := filepath.Join(c.downloadDir, uuid.NewString())
	if err := os.MkdirAll(invocationDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.deemixPath, trackURL, "-p", invocationDir, "-b", c.bitrate)
	output, runErr := cmd.CombinedOutput()

	if runCtx.Err() == context.DeadlineExceeded {
		c.logger.Warn("Download timed out",
			zap.String("title", title),
			zap.String("artist", artist),
			zap.Duration("timeout", c.timeout))
		_ = os.RemoveAll(invocationDir)
		return nil, ErrTimeout
	}

	// Файл в директории вызова — успех независимо от кода выхода
	if files := scanAudioFiles(invocationDir); len(files) > 0 {
		path := files[0]
		c.logger.Info("Track downloaded",
			zap.String("title", title),
			zap.String("artist", artist),
			zap.String("path", path),
			zap.Int64("size", fileSize(path)))
		return &model.Asset{Path: path, Dir: invocationDir, Size: fileSize(path)}, nil
	}

	_ = os.RemoveAll(invocationDir)

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		c.logger.Warn("Deemix failed",
			zap.String("title", title),
			zap.Int("exit_code", exitErr.ExitCode()),
			zap.String("output", truncateOutput(output)))
		return nil, &ProcessError{Code: exitErr.ExitCode()}
	}
	if runErr != nil {
		return nil, fmt.Errorf("failed to run deemix: %w", runErr)
	}

	// Deemix отчитался об успехе без нового файла: трек мог быть скачан
	// ранее. Ищем недавний файл по имени в общих каталогах.
	for _, dir := range []string{c.downloadDir, c.musicDir} {
		if path, ok := findRecentTrackFile(dir, title, fallbackFileAge); ok {
			c.logger.Info("Found existing track file",
				zap.String("title", title),
				zap.String("path", path))
			return &model.Asset{Path: path, Size: fileSize(path)}, nil
		}
	}

	return nil, ErrNotFound
}

// searchTrack ищет трек в Deezer и возвращает ссылку на него
func (c *Client) searchTrack(ctx context.Context, title, artist string) (string, error) {
	query := url.QueryEscape(title + " " + artist)
	searchURL := fmt.Sprintf("%s/search?q=%s", c.searchURL, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deezer search failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deezer search failed with status %d", resp.StatusCode)
	}

	var result struct {
		Total int `json:"total"`
		Data  []struct {
			Link   string `json:"link"`
			Title  string `json:"title"`
			Artist struct {
				Name string `json:"name"`
			} `json:"artist"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	if result.Total == 0 || len(result.Data) == 0 {
		return "", ErrNotFound
	}

	hit := result.Data[0]
	c.logger.Debug("Deezer search hit",
		zap.String("query_title", title),
		zap.String("found_title", hit.Title),
		zap.String("found_artist", hit.Artist.Name))

	return hit.Link, nil
}

// truncateOutput обрезает вывод процесса для лога
func truncateOutput(output []byte) string {
	const limit = 500
	s := strings.TrimSpace(string(output))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
