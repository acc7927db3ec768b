package mimiqlink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/go-querystring/query"

	"github.com/qperfect-io/mimiqlink-go/domain"
)

// File an in-memory upload for RequestFiles.
type File struct {
	Name   string
	Reader io.Reader
}

// Request submits an execution request with the given input files and
// returns the execution request id. The upload carries no deadline of
// its own, cancel through ctx.
func (s *session) Request(ctx context.Context, emulatorType, name, label string, timeout int, uploads ...string) (string, error) {
	files := make([]File, 0, len(uploads))

	for _, path := range uploads {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()

		files = append(files, File{Name: filepath.Base(path), Reader: f})
	}

	return s.RequestFiles(ctx, emulatorType, name, label, timeout, files...)
}

// RequestFiles is Request for uploads that are not on disk.
func (s *session) RequestFiles(ctx context.Context, emulatorType, name, label string, timeout int, files ...File) (string, error) {
	if err := s.CheckAuth(); err != nil {
		return "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	_ = writer.WriteField("name", name)
	_ = writer.WriteField("label", label)
	_ = writer.WriteField("emulatorType", emulatorType)
	_ = writer.WriteField("timeout", strconv.Itoa(timeout))

	for _, file := range files {
		part, err := writer.CreateFormFile("uploads", file.Name)
		if err != nil {
			return "", err
		}

		if _, err := io.Copy(part, file.Reader); err != nil {
			return "", err
		}
	}

	// flush the parts to the body
	_ = writer.Close()

	resp, err := s.send(ctx, http.MethodPost, s.apiURL("request"), body, sendOpts{
		contentType: writer.FormDataContentType(),
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var reply domain.RequestReply
	if err := decodeReply(resp, &reply); err != nil {
		return "", fmt.Errorf("file upload failed: %w", err)
	}

	return reply.ExecutionRequestID, nil
}

// RequestInfo retrieves the execution details for a given request.
func (s *session) RequestInfo(ctx context.Context, id string) (*domain.RequestInfo, error) {
	if err := s.CheckAuth(); err != nil {
		return nil, err
	}

	var info domain.RequestInfo
	if err := s.getJSON(ctx, s.apiURL("request", id), &info); err != nil {
		return nil, fmt.Errorf("failed to retrieve execution details for %s: %w", id, err)
	}

	return &info, nil
}

// Requests retrieves the request listing, optionally narrowed by filter.
func (s *session) Requests(ctx context.Context, filter *domain.RequestFilter) (domain.RequestInfoList, error) {
	if err := s.CheckAuth(); err != nil {
		return nil, err
	}

	url := s.apiURL("request")
	if filter != nil {
		values, err := query.Values(filter)
		if err != nil {
			return nil, err
		}
		if encoded := values.Encode(); encoded != "" {
			url += "?" + encoded
		}
	}

	var reply domain.RequestListReply
	if err := s.getJSON(ctx, url, &reply); err != nil {
		return nil, fmt.Errorf("failed to retrieve the list of requests: %w", err)
	}

	return reply.Executions.Docs, nil
}

// StopExecution asks the server to stop the given execution.
func (s *session) StopExecution(ctx context.Context, id string) error {
	if err := s.CheckAuth(); err != nil {
		return err
	}

	if err := s.postJSON(ctx, s.apiURL("stop-execution", id), nil, nil, false); err != nil {
		return fmt.Errorf("failed to stop the execution %s: %w", id, err)
	}

	return nil
}

// DeleteFiles removes the remote files of the given execution request.
func (s *session) DeleteFiles(ctx context.Context, id string) error {
	if err := s.CheckAuth(); err != nil {
		return err
	}

	if err := s.postJSON(ctx, s.apiURL("delete-files", id), nil, nil, false); err != nil {
		return fmt.Errorf("failed to delete the files for %s: %w", id, err)
	}

	return nil
}

// IsJobDone reports whether the job reached an end state, DONE or ERROR.
func (s *session) IsJobDone(ctx context.Context, id string) (bool, error) {
	info, err := s.RequestInfo(ctx, id)
	if err != nil {
		return false, err
	}
	return info.Status.IsDone(), nil
}

// IsJobFailed reports whether the job ended in ERROR.
func (s *session) IsJobFailed(ctx context.Context, id string) (bool, error) {
	info, err := s.RequestInfo(ctx, id)
	if err != nil {
		return false, err
	}
	return info.Status.IsFailed(), nil
}

// IsJobStarted reports whether the job left the NEW state.
func (s *session) IsJobStarted(ctx context.Context, id string) (bool, error) {
	info, err := s.RequestInfo(ctx, id)
	if err != nil {
		return false, err
	}
	return info.Status.IsStarted(), nil
}

// IsJobCanceled reports whether the job was canceled.
func (s *session) IsJobCanceled(ctx context.Context, id string) (bool, error) {
	info, err := s.RequestInfo(ctx, id)
	if err != nil {
		return false, err
	}
	return info.Status.IsCanceled(), nil
}
