package mimiqlink

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/qperfect-io/mimiqlink-go/domain"
	"github.com/qperfect-io/mimiqlink-go/util"
)

// DownloadFile fetches a single file of an execution request into destdir
// and returns its server-side name. A 202 reply means the server is still
// packaging the file; the download is retried with growing waits.
func (s *session) DownloadFile(ctx context.Context, id string, index int, source domain.FileSource, destdir string) (string, error) {
	if err := s.CheckAuth(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?source=%s", s.apiURL("files", id, strconv.Itoa(index)), source)

	var lastErr error
	for attempt := 0; attempt < s.downloadAttempts; attempt++ {
		name, retry, err := s.downloadOnce(ctx, url, destdir)
		if err == nil {
			return name, nil
		}
		if !retry {
			return "", fmt.Errorf("failed to retrieve %s files for %s: %w", source, id, err)
		}

		lastErr = err
		wait := s.downloadWait * time.Duration(attempt+1)
		util.LogInfo("Server is still processing the request, retrying in %v", wait)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}

	return "", fmt.Errorf("failed to retrieve %s files for %s: %w", source, id, lastErr)
}

// downloadOnce performs one fetch. retry is true only for a 202 reply.
func (s *session) downloadOnce(ctx context.Context, url, destdir string) (name string, retry bool, err error) {
	resp, err := s.send(ctx, http.MethodGet, url, nil, sendOpts{})
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return "", true, &APIError{Status: resp.StatusCode, Message: "server is still processing the request"}
	}

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		return "", false, apiError(resp.StatusCode, raw)
	}

	filename := dispositionFilename(resp.Header.Get(util.HttpHeaderContentDisposition))
	if filename == "" {
		// server bug, nothing to recover from here
		return "", false, ErrMissingFilename
	}

	var reader io.Reader = resp.Body
	if s.progressOut != nil {
		counter := &progressWriter{out: s.progressOut}
		defer counter.Finish()
		reader = io.TeeReader(resp.Body, counter)
	}

	if _, err := util.WriteFileAtomic(filepath.Join(destdir, filename), reader); err != nil {
		return "", false, err
	}

	return filename, false, nil
}

// DownloadFiles fetches every file of the given source for an execution
// request. destdir defaults to ./{id} and is created when missing.
// Returns the downloaded file names.
func (s *session) DownloadFiles(ctx context.Context, id string, source domain.FileSource, destdir string) ([]string, error) {
	if err := s.CheckAuth(); err != nil {
		return nil, err
	}

	if destdir == "" {
		destdir = filepath.Join(".", id)
	}

	if err := util.MkdirIfNotExist(destdir); err != nil {
		return nil, err
	}

	info, err := s.RequestInfo(ctx, id)
	if err != nil {
		return nil, err
	}

	count := info.FileCount(source)
	names := make([]string, 0, count)

	for index := 0; index < count; index++ {
		name, err := s.DownloadFile(ctx, id, index, source, destdir)
		if err != nil {
			return names, err
		}
		names = append(names, name)
	}

	return names, nil
}

// DownloadJobFiles fetches the uploaded input files of an execution request.
func (s *session) DownloadJobFiles(ctx context.Context, id, destdir string) ([]string, error) {
	return s.DownloadFiles(ctx, id, domain.SourceUploads, destdir)
}

// DownloadResults fetches the result files of an execution request.
func (s *session) DownloadResults(ctx context.Context, id, destdir string) ([]string, error) {
	return s.DownloadFiles(ctx, id, domain.SourceResults, destdir)
}

func dispositionFilename(disposition string) string {
	if disposition == "" {
		return ""
	}

	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}

	return params["filename"]
}
