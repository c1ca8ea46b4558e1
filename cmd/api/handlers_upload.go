package main

import (
	"errors"
	"net/http"

	"tanitrust/pinning"
)

// multipart overhead allowed on top of the file itself
const uploadEnvelope = 64 << 10

type uploadResponse struct {
	Success bool `json:"success"`
	pinning.Result
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.uploads.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+uploadEnvelope)
	if err := r.ParseMultipartForm(maxBytes + uploadEnvelope); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.fail(w, r, pinning.ErrTooLarge)
			return
		}
		s.missingFile(w, r)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.missingFile(w, r)
		return
	}
	defer file.Close()

	res, err := s.uploads.Upload(r.Context(), pinning.File{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{Success: true, Result: res})
}

// missingFile lets the gateway report configuration problems ahead of the
// absent file.
func (s *Server) missingFile(w http.ResponseWriter, r *http.Request) {
	_, err := s.uploads.Upload(r.Context(), pinning.File{})
	if err == nil {
		err = pinning.ErrNoFile
	}
	s.fail(w, r, err)
}
