package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ladlehq/ladle/pkg/logger"
)

var log = logger.Get("YtDlp")

// maxOutputBytes caps the stdout we accept from yt-dlp. Video descriptions
// can be very long, so the ceiling is generous, but a runaway process must
// not be allowed to buffer unbounded output.
const maxOutputBytes = 32 << 20

type (
	Config struct {
		BinaryPath string `yaml:"ytdlp_binary" env:"YTDLP_PATH" env-default:"/app/lib/yt-dlp"`
	}

	// VideoMetadata is the subset of the yt-dlp JSON dump the importer
	// cares about. Description may legitimately be empty; videos without
	// one are still importable.
	VideoMetadata struct {
		Title       string
		Description string
		Thumbnail   string
		Channel     string
	}

	// MetadataFetcher shells out to the yt-dlp binary to obtain the
	// metadata for a video URL as a JSON dump (no media download occurs).
	MetadataFetcher struct {
		config Config
	}
)

func NewMetadataFetcher(config Config) *MetadataFetcher {
	return &MetadataFetcher{config}
}

// Validate asserts that the configured binary exists and is runnable by
// executing its trivial --version operation. Every import depends on the
// tool, so the caller is expected to treat a failure here as fatal and
// refuse to serve.
func (fetcher *MetadataFetcher) Validate(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, fetcher.config.BinaryPath, "--version")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &ExecutionError{Stderr: stderr.String(), cause: err}
	}

	log.Emit(logger.SUCCESS, "yt-dlp version check successful: %s\n", strings.TrimSpace(stdout.String()))
	return nil
}

// VideoDetails invokes yt-dlp against the given URL requesting a JSON
// metadata dump. A non-zero exit (or failure to launch) is returned as an
// ExecutionError carrying the captured stderr; output that cannot be
// parsed as JSON is returned as an OutputParseError.
func (fetcher *MetadataFetcher) VideoDetails(ctx context.Context, url string) (*VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, fetcher.config.BinaryPath, url, "-j")

	stdout := &cappedBuffer{cap: maxOutputBytes}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Emit(logger.ERROR, "yt-dlp execution for %s failed: %s\n", url, err.Error())
		return nil, &ExecutionError{Stderr: strings.TrimSpace(stderr.String()), cause: err}
	}

	var rawMetadata struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
		Thumbnail   string  `json:"thumbnail"`
		Channel     string  `json:"channel"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &rawMetadata); err != nil {
		return nil, &OutputParseError{cause: err}
	}

	metadata := &VideoMetadata{
		Title:     rawMetadata.Title,
		Thumbnail: rawMetadata.Thumbnail,
		Channel:   rawMetadata.Channel,
	}
	if rawMetadata.Description == nil {
		log.Emit(logger.WARNING, "No 'description' field found in yt-dlp output for %s\n", url)
	} else {
		metadata.Description = *rawMetadata.Description
	}

	return metadata, nil
}

// cappedBuffer rejects writes past its cap, which aborts the running
// command rather than letting it fill memory.
type cappedBuffer struct {
	buffer bytes.Buffer
	cap    int
}

func (buf *cappedBuffer) Write(p []byte) (int, error) {
	if buf.buffer.Len()+len(p) > buf.cap {
		return 0, fmt.Errorf("output exceeded %d byte ceiling", buf.cap)
	}

	return buf.buffer.Write(p)
}

func (buf *cappedBuffer) Bytes() []byte { return buf.buffer.Bytes() }

type (
	ExecutionError struct {
		Stderr string
		cause  error
	}
	OutputParseError struct{ cause error }
)

func (err *ExecutionError) Error() string {
	if err.Stderr != "" {
		return fmt.Sprintf("failed to execute yt-dlp: %s", err.Stderr)
	}

	return fmt.Sprintf("failed to execute yt-dlp: %v", err.cause)
}
func (err *ExecutionError) Unwrap() error { return err.cause }

func (err *OutputParseError) Error() string {
	return fmt.Sprintf("failed to parse yt-dlp output: %v", err.cause)
}
func (err *OutputParseError) Unwrap() error { return err.cause }
