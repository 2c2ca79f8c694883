// Package acestep is a client for the ACE-Step v1.5 REST API.
package acestep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/satindergrewal/tailortune/internal/errors"
	"github.com/satindergrewal/tailortune/internal/logger"
)

// Client communicates with the ACE-Step v1.5 REST API.
type Client struct {
	apiURL    string
	apiKey    string
	outputDir string // shared volume mount point
	http      *http.Client
	log       *logger.Logger
}

// NewClient creates an ACE-Step API client.
func NewClient(apiURL, apiKey, outputDir string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		apiURL:    apiURL,
		apiKey:    apiKey,
		outputDir: outputDir,
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       log,
	}
}

// GenerateRequest contains parameters for music generation.
type GenerateRequest struct {
	Caption        string `json:"caption"`
	Lyrics         string `json:"lyrics"`
	Duration       int    `json:"audio_duration"`
	InferenceSteps int    `json:"inference_steps"`
	Seed           int    `json:"seed"`
	BatchSize      int    `json:"batch_size"`
	AudioFormat    string `json:"audio_format"`
}

type releaseResp struct {
	Data struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
	Code  int    `json:"code"`
	Error string `json:"error"`
}

type queryResp struct {
	Data []taskResult `json:"data"`
	Code int          `json:"code"`
}

const tempPrefix = "tailortune-acestep-"

// Task states reported by /query_result.
const (
	statusSuccess = 1
	statusFailed  = 2
)

type taskResult struct {
	TaskID string `json:"task_id"`
	Status int    `json:"status"`
	Result string `json:"result"` // JSON string with file info
}

type resultItem struct {
	File   string `json:"file"`
	Status int    `json:"status"`
}

// WaitForHealthy blocks until the ACE-Step API responds to health checks.
func (c *Client) WaitForHealthy(ctx context.Context, interval time.Duration) error {
	c.log.Info("Waiting for ACE-Step API to be ready", "url", c.apiURL)
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/health", nil)
		if err != nil {
			return errors.External(err, "create health request")
		}
		resp, err := c.http.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				c.log.Info("ACE-Step API is healthy")
				return nil
			}
		}

		c.log.Debug("ACE-Step not ready, retrying", "in", interval)
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// Generate submits a music generation task and returns the task ID.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeValidation, "marshal request")
	}

	httpReq, err := c.newPost(ctx, "/release_task", body)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", errors.External(err, "submit task")
	}
	defer resp.Body.Close()

	var result releaseResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.External(err, "decode response")
	}

	if result.Code != 200 {
		return "", errors.New(errors.CodeExternal, "ACE-Step API error (code %d): %s", result.Code, result.Error)
	}

	return result.Data.TaskID, nil
}

// PollUntilDone polls for task completion, returning the audio file path.
// Transient poll errors are retried until ctx ends.
func (c *Client) PollUntilDone(ctx context.Context, taskID string, interval time.Duration) (string, error) {
	reqBody, _ := json.Marshal(map[string][]string{
		"task_id_list": {taskID},
	})

	for {
		httpReq, err := c.newPost(ctx, "/query_result", reqBody)
		if err != nil {
			return "", err
		}

		task, err := c.query(httpReq)
		switch {
		case err != nil:
			c.log.Warn("Poll error, retrying", "task", taskID, "error", err)
		case task == nil:
			// not registered yet
		case task.Status == statusSuccess:
			return c.extractAudioPath(ctx, task.Result)
		case task.Status == statusFailed:
			return "", errors.New(errors.CodeExternal, "generation failed for task %s", taskID)
		}

		if err := sleep(ctx, interval); err != nil {
			return "", err
		}
	}
}

func (c *Client) query(req *http.Request) (*taskResult, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result queryResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, nil
	}
	return &result.Data[0], nil
}

func (c *Client) newPost(ctx context.Context, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.External(err, "create request %s", path)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// extractAudioPath parses the result JSON and returns the local file path.
func (c *Client) extractAudioPath(ctx context.Context, resultJSON string) (string, error) {
	var items []resultItem
	if err := json.Unmarshal([]byte(resultJSON), &items); err != nil {
		return "", errors.External(err, "parse result items")
	}

	if len(items) == 0 || items[0].File == "" {
		return "", errors.New(errors.CodeExternal, "no audio file in result")
	}

	fileRef := items[0].File

	// Try shared volume first. ACE-Step returns references like
	// "/v1/audio?path=outputs/task_xxx/0.wav".
	if u, err := url.Parse(fileRef); err == nil {
		if relPath := u.Query().Get("path"); relPath != "" {
			localPath := filepath.Join(c.outputDir, relPath)
			if _, err := os.Stat(localPath); err == nil {
				return localPath, nil
			}
		}
	}

	return c.downloadAudio(ctx, fileRef)
}

// downloadAudio fetches the audio file from the API into a temp file.
// The caller removes it.
func (c *Client) downloadAudio(ctx context.Context, fileRef string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+fileRef, nil)
	if err != nil {
		return "", errors.External(err, "create download request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.External(err, "download audio")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.CodeExternal, "download audio: status %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", tempPrefix+"*"+filepath.Ext(stripQuery(fileRef)))
	if err != nil {
		return "", errors.FileSystem(err, "create temp file")
	}

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", errors.FileSystem(err, "write audio")
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return "", errors.FileSystem(err, "close temp file")
	}
	return tmpFile.Name(), nil
}

// IsTemp reports whether path was created by downloadAudio.
func IsTemp(path string) bool {
	dir, file := filepath.Split(path)
	return filepath.Clean(dir) == filepath.Clean(os.TempDir()) && strings.HasPrefix(file, tempPrefix)
}

func stripQuery(ref string) string {
	if u, err := url.Parse(ref); err == nil {
		if p := u.Query().Get("path"); p != "" {
			return p
		}
		return u.Path
	}
	return ref
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
