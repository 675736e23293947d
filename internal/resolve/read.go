package resolve

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// ReadFileContent reads filename's bytes, fetching it over HTTP(S) first if
// it names a URL rather than a local path.
func ReadFileContent(filename string) ([]byte, error) {
	if IsURL(filename) {
		return ReadRemoteFileContent(filename)
	}
	return os.ReadFile(filename)
}

// IsURL reports whether s parses as an absolute http(s) URL.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

var remoteFileClient = &http.Client{Timeout: 10 * time.Second}

// ReadRemoteFileContent fetches rawURL's body; ReadFileContent calls it when
// config loading is pointed at a shipcat.conf URL.
func ReadRemoteFileContent(rawURL string) ([]byte, error) {
	resp, err := remoteFileClient.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", rawURL, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
