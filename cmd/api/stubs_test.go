package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"tanitrust/auth"
	"tanitrust/dispute"
	"tanitrust/order"
	"tanitrust/pinning"
	"tanitrust/product"
)

type stubDisputeService struct {
	record      dispute.Record
	proposal    dispute.ProposalResult
	vote        dispute.VoteResult
	resolve     dispute.ResolveResult
	status      dispute.VotingStatus
	events      []dispute.Event
	err         error
	gotCreate   dispute.CreateParams
	gotPropose  dispute.ProposeParams
	gotVote     dispute.VoteParams
	gotResolve  [2]string
	gotID       string
	proposeSeen bool
}

func (s *stubDisputeService) Create(_ context.Context, p dispute.CreateParams) (dispute.Record, error) {
	s.gotCreate = p
	return s.record, s.err
}

func (s *stubDisputeService) Propose(_ context.Context, p dispute.ProposeParams) (dispute.ProposalResult, error) {
	s.gotPropose = p
	s.proposeSeen = true
	return s.proposal, s.err
}

func (s *stubDisputeService) Vote(_ context.Context, p dispute.VoteParams) (dispute.VoteResult, error) {
	s.gotVote = p
	return s.vote, s.err
}

func (s *stubDisputeService) Resolve(_ context.Context, disputeID, orderID string) (dispute.ResolveResult, error) {
	s.gotResolve = [2]string{disputeID, orderID}
	return s.resolve, s.err
}

func (s *stubDisputeService) Get(_ context.Context, id string) (dispute.Record, error) {
	s.gotID = id
	return s.record, s.err
}

func (s *stubDisputeService) VotingStatus(_ context.Context, id string) (dispute.VotingStatus, error) {
	s.gotID = id
	return s.status, s.err
}

func (s *stubDisputeService) History(_ context.Context, id string) ([]dispute.Event, error) {
	s.gotID = id
	return s.events, s.err
}

type stubOrderService struct {
	record    order.Record
	listings  []order.Listing
	err       error
	gotSync   order.SyncParams
	gotFilter order.Filter
	gotID     string
}

func (s *stubOrderService) Sync(_ context.Context, p order.SyncParams) (order.Record, error) {
	s.gotSync = p
	return s.record, s.err
}

func (s *stubOrderService) Get(_ context.Context, id string) (order.Record, error) {
	s.gotID = id
	return s.record, s.err
}

func (s *stubOrderService) List(_ context.Context, f order.Filter) ([]order.Listing, error) {
	s.gotFilter = f
	return s.listings, s.err
}

type stubProductService struct {
	record  product.Record
	page    product.Page
	err     error
	gotSync product.SyncParams
	gotList product.ListParams
	gotID   string
}

func (s *stubProductService) Sync(_ context.Context, p product.SyncParams) (product.Record, error) {
	s.gotSync = p
	return s.record, s.err
}

func (s *stubProductService) Get(_ context.Context, id string) (product.Record, error) {
	s.gotID = id
	return s.record, s.err
}

func (s *stubProductService) Delete(_ context.Context, id string) (product.Record, error) {
	s.gotID = id
	return s.record, s.err
}

func (s *stubProductService) List(_ context.Context, p product.ListParams) (product.Page, error) {
	s.gotList = p
	return s.page, s.err
}

type stubUploadService struct {
	result  pinning.Result
	err     error
	max     int64
	gotFile pinning.File
	gotBody []byte
	calls   int
}

func (s *stubUploadService) Upload(_ context.Context, f pinning.File) (pinning.Result, error) {
	s.calls++
	s.gotFile = f
	if f.Body != nil {
		s.gotBody, _ = io.ReadAll(f.Body)
	}
	return s.result, s.err
}

func (s *stubUploadService) MaxBytes() int64 {
	if s.max == 0 {
		return pinning.DefaultMaxBytes
	}
	return s.max
}

type stubTokens struct {
	enabled bool
	valid   string
}

func (s stubTokens) Enabled() bool { return s.enabled }

func (s stubTokens) Verify(token string) (auth.Principal, error) {
	if token != s.valid {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	return auth.Principal{Subject: "indexer", Scope: auth.ScopeSync}, nil
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func newTestServer() *Server {
	return &Server{
		disputes: &stubDisputeService{},
		orders:   &stubOrderService{},
		products: &stubProductService{},
		uploads:  &stubUploadService{},
		log:      zerolog.Nop(),
	}
}

func serve(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func serveRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}
