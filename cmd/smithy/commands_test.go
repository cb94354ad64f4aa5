package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"smithy/internal/chat"
	"smithy/internal/client"
	"smithy/internal/config"
	"smithy/internal/events"
	"smithy/internal/server"
	"smithy/internal/sessionops"
	"smithy/internal/types"
)

type testCLI struct {
	wiring commandWiring
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	config config.Config
}

func newTestCLI(fake *fakeCommandClient, stdin string) *testCLI {
	tc := &testCLI{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	tc.wiring = commandWiring{
		stdout: tc.stdout,
		stderr: tc.stderr,
		stdin:  strings.NewReader(stdin),
		loadConfig: func() (config.Config, string, error) {
			return config.Default(), "/tmp/smithy/config.toml", nil
		},
		newClient: func(_ context.Context, cfg config.Config) (commandClient, error) {
			tc.config = cfg
			return fake, nil
		},
		newServer:  func(config.Config) serverControl { return &fakeServer{} },
		runUI:      func(context.Context, config.Config, string) error { return nil },
		isTerminal: func(io.Writer) bool { return false },
		version:    "test",
	}
	return tc
}

func (tc *testCLI) run(args ...string) error {
	root := newRootCommand(tc.wiring)
	// A nil slice makes cobra read os.Args.
	root.SetArgs(append([]string{}, args...))
	return root.ExecuteContext(context.Background())
}

func TestDialogsListMarksCurrent(t *testing.T) {
	fake := &fakeCommandClient{dialogs: &types.DialogList{
		Items:           []*types.Dialog{{ID: "d1", Title: strPtr("first")}, {ID: "d2"}},
		CurrentDialogID: "d2",
	}}
	tc := newTestCLI(fake, "")

	if err := tc.run("dialogs", "list"); err != nil {
		t.Fatalf("expected list to succeed, got err=%v", err)
	}
	out := tc.stdout.String()
	if !strings.Contains(out, "ID") || !strings.Contains(out, "TITLE") {
		t.Fatalf("expected header in output, got %q", out)
	}
	if !strings.Contains(out, "first") || !strings.Contains(out, "New dialog") {
		t.Fatalf("expected dialog rows, got %q", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "d2") && !strings.HasPrefix(line, "*") {
			t.Fatalf("expected current dialog marked, got %q", line)
		}
		if strings.Contains(line, "d1") && strings.HasPrefix(line, "*") {
			t.Fatalf("expected only the current dialog marked, got %q", line)
		}
	}
}

func TestDialogsNewCreatesAndSelects(t *testing.T) {
	fake := &fakeCommandClient{created: &types.Dialog{ID: "d9"}}
	tc := newTestCLI(fake, "")

	if err := tc.run("dialogs", "new", "fix", "tests"); err != nil {
		t.Fatalf("expected new to succeed, got err=%v", err)
	}
	if fake.createdTitle != "fix tests" {
		t.Fatalf("unexpected title: %q", fake.createdTitle)
	}
	if fake.currentSet != "d9" {
		t.Fatalf("expected new dialog selected, got %q", fake.currentSet)
	}
	if got := tc.stdout.String(); got != "d9\n" {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestDialogsRemoveAsksFirst(t *testing.T) {
	fake := &fakeCommandClient{}
	tc := newTestCLI(fake, "n\n")

	err := tc.run("dialogs", "rm", "d1")
	if !errors.Is(err, sessionops.ErrOperationCancelled) {
		t.Fatalf("expected cancellation, got err=%v", err)
	}
	if len(fake.deleted) != 0 {
		t.Fatalf("expected no delete, got %v", fake.deleted)
	}
	if !strings.Contains(tc.stderr.String(), "[y/N]") {
		t.Fatalf("expected prompt on stderr, got %q", tc.stderr.String())
	}

	tc = newTestCLI(fake, "")
	if err := tc.run("dialogs", "rm", "--yes", "d1"); err != nil {
		t.Fatalf("expected delete to succeed, got err=%v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "d1" {
		t.Fatalf("unexpected deletes: %v", fake.deleted)
	}
}

func TestChatStreamsReply(t *testing.T) {
	fake := &fakeCommandClient{
		dialogs: &types.DialogList{CurrentDialogID: "d1"},
		stream: []events.Event{
			events.ChatStart{},
			events.Chat{Content: "Hel"},
			events.Chat{Content: "lo"},
			events.ChatEnd{},
			events.Done{DialogID: "d1"},
		},
	}
	tc := newTestCLI(fake, "")

	if err := tc.run("chat", "hi", "there"); err != nil {
		t.Fatalf("expected chat to succeed, got err=%v", err)
	}
	if len(fake.requests) != 1 {
		t.Fatalf("expected one chat request, got %d", len(fake.requests))
	}
	req := fake.requests[0]
	if req.DialogID != "d1" || !req.Stream || req.Messages[0].Content != "hi there" {
		t.Fatalf("unexpected request: %#v", req)
	}
	if got := tc.stdout.String(); got != "Hello\n" {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestChatReadsStdinAndReportsNewDialog(t *testing.T) {
	fake := &fakeCommandClient{
		dialogs: &types.DialogList{},
		stream: []events.Event{
			events.Chat{Content: "ok"},
			events.Done{DialogID: "new-1"},
		},
	}
	tc := newTestCLI(fake, "from stdin\n")

	if err := tc.run("chat"); err != nil {
		t.Fatalf("expected chat to succeed, got err=%v", err)
	}
	req := fake.requests[0]
	if req.DialogID != "" || req.Messages[0].Content != "from stdin" {
		t.Fatalf("unexpected request: %#v", req)
	}
	if !strings.Contains(tc.stderr.String(), "dialog: new-1") {
		t.Fatalf("expected resolved dialog on stderr, got %q", tc.stderr.String())
	}
}

func TestChatFailsOnEmptyStream(t *testing.T) {
	fake := &fakeCommandClient{dialogs: &types.DialogList{CurrentDialogID: "d1"}}
	tc := newTestCLI(fake, "")

	err := tc.run("chat", "-d", "d2", "hello")
	if err == nil || !strings.Contains(err.Error(), "No response") {
		t.Fatalf("expected empty stream error, got %v", err)
	}
	if fake.requests[0].DialogID != "d2" {
		t.Fatalf("expected explicit dialog, got %q", fake.requests[0].DialogID)
	}
}

func TestChatPrintsStreamErrors(t *testing.T) {
	fake := &fakeCommandClient{
		dialogs: &types.DialogList{CurrentDialogID: "d1"},
		stream: []events.Event{
			events.ToolCall{Name: "read_file"},
			events.Error{Error: "model unavailable"},
		},
	}
	tc := newTestCLI(fake, "")

	if err := tc.run("chat", "hello"); err != nil {
		t.Fatalf("expected in-stream error to be printed, got err=%v", err)
	}
	out := tc.stdout.String()
	if !strings.Contains(out, "⚙ read_file") || !strings.Contains(out, "error: model unavailable") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestHistoryDefaultsToCurrentDialog(t *testing.T) {
	fake := &fakeCommandClient{
		dialogs: &types.DialogList{CurrentDialogID: "d1"},
		history: &types.HistoryPage{
			DialogID: "d1",
			HasMore:  true,
			FirstIdx: types.IntPtr(40),
			Events: []types.HistoryEvent{
				{Type: types.HistoryEventUser, Content: "hi"},
				{Type: types.HistoryEventChat, Content: "hello"},
				{Type: types.HistoryEventFileEdit, File: "main.go"},
			},
		},
	}
	tc := newTestCLI(fake, "")

	if err := tc.run("history", "--limit", "5"); err != nil {
		t.Fatalf("expected history to succeed, got err=%v", err)
	}
	if fake.historyCall != "d1:5:0" {
		t.Fatalf("unexpected history call: %q", fake.historyCall)
	}
	out := tc.stdout.String()
	for _, want := range []string{"--before 40", "you: hi", "agent: hello", "edit: main.go"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestHistoryWithoutCurrentDialogFails(t *testing.T) {
	fake := &fakeCommandClient{dialogs: &types.DialogList{}}
	tc := newTestCLI(fake, "")

	if err := tc.run("history"); !errors.Is(err, errNoCurrentDialog) {
		t.Fatalf("expected no current dialog error, got %v", err)
	}
}

func TestStatusPrintsChangedFiles(t *testing.T) {
	fake := &fakeCommandClient{status: &types.SessionStatus{
		ActiveSession: "session_2",
		HasUnapproved: true,
		ChangedFiles:  []types.ChangedFile{{Path: "a.go", Status: "modified", Additions: 3, Deletions: 1}},
	}}
	tc := newTestCLI(fake, "")

	if err := tc.run("status", "d7"); err != nil {
		t.Fatalf("expected status to succeed, got err=%v", err)
	}
	out := tc.stdout.String()
	if !strings.Contains(out, "session_2") || !strings.Contains(out, "a.go") || !strings.Contains(out, "+3 -1") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestResetNeedsConfirmation(t *testing.T) {
	fake := &fakeCommandClient{
		dialogs: &types.DialogList{CurrentDialogID: "d1"},
		reset:   &types.ResetResult{ResetTo: "abc123"},
		status:  &types.SessionStatus{},
	}
	tc := newTestCLI(fake, "\n")

	if err := tc.run("reset"); !errors.Is(err, sessionops.ErrOperationCancelled) {
		t.Fatalf("expected cancellation, got err=%v", err)
	}
	if fake.resetCalls != 0 {
		t.Fatalf("expected no reset, got %d", fake.resetCalls)
	}

	tc = newTestCLI(fake, "y\n")
	if err := tc.run("reset"); err != nil {
		t.Fatalf("expected reset to succeed, got err=%v", err)
	}
	if fake.resetCalls != 1 {
		t.Fatalf("expected one reset, got %d", fake.resetCalls)
	}
	if !strings.Contains(tc.stdout.String(), "reset to abc123") {
		t.Fatalf("unexpected output: %q", tc.stdout.String())
	}
}

func TestRestoreUsesCheckpointAndDialogFlag(t *testing.T) {
	fake := &fakeCommandClient{
		restore: &types.RestoreResult{RestoredTo: "cp1"},
		status:  &types.SessionStatus{},
	}
	tc := newTestCLI(fake, "")

	if err := tc.run("restore", "--yes", "-d", "d3", "cp1"); err != nil {
		t.Fatalf("expected restore to succeed, got err=%v", err)
	}
	if fake.restoreCall != "d3:cp1" {
		t.Fatalf("unexpected restore call: %q", fake.restoreCall)
	}
}

func TestApprovePassesMessage(t *testing.T) {
	fake := &fakeCommandClient{
		dialogs: &types.DialogList{CurrentDialogID: "d1"},
		approve: &types.ApproveResult{ApprovedCommit: "c0ffee", CommitsApproved: 2},
		status:  &types.SessionStatus{},
	}
	tc := newTestCLI(fake, "")

	if err := tc.run("approve", "-m", "ship it"); err != nil {
		t.Fatalf("expected approve to succeed, got err=%v", err)
	}
	if fake.approveCall != "d1:ship it" {
		t.Fatalf("unexpected approve call: %q", fake.approveCall)
	}
	if !strings.Contains(tc.stdout.String(), "approved 2 commit(s) as c0ffee") {
		t.Fatalf("unexpected output: %q", tc.stdout.String())
	}
}

func TestGlobalFlagsOverrideConfig(t *testing.T) {
	fake := &fakeCommandClient{dialogs: &types.DialogList{}}
	tc := newTestCLI(fake, "")
	workspace := t.TempDir()

	if err := tc.run("--url", "http://127.0.0.1:9999", "--workspace", workspace, "dialogs"); err != nil {
		t.Fatalf("expected dialogs to succeed, got err=%v", err)
	}
	if tc.config.Server.URL != "http://127.0.0.1:9999" || tc.config.Server.Workspace != workspace {
		t.Fatalf("expected overrides applied, got %#v", tc.config.Server)
	}

	missing := filepath.Join(workspace, "missing")
	if err := tc.run("--workspace", missing, "dialogs"); err == nil {
		t.Fatalf("expected missing workspace to fail")
	}
}

func TestDialogsShowPrintsDetails(t *testing.T) {
	fake := &fakeCommandClient{dialogs: &types.DialogList{
		Items: []*types.Dialog{{ID: "d1", Title: strPtr("first")}},
	}}
	tc := newTestCLI(fake, "")

	if err := tc.run("dialogs", "show", "d1"); err != nil {
		t.Fatalf("expected show to succeed, got err=%v", err)
	}
	out := tc.stdout.String()
	if !strings.Contains(out, "d1") || !strings.Contains(out, "first") {
		t.Fatalf("unexpected output: %q", out)
	}

	err := tc.run("dialogs", "show", "gone")
	if err == nil || !strings.Contains(err.Error(), "dialog gone not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestConfigSetBuildsNestedPatch(t *testing.T) {
	fake := &fakeCommandClient{}
	tc := newTestCLI(fake, "")

	if err := tc.run("config", "set", "models.agent.temperature", "0.2"); err != nil {
		t.Fatalf("expected set to succeed, got err=%v", err)
	}
	models, ok := fake.configPatch["models"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested patch, got %#v", fake.configPatch)
	}
	agent, ok := models["agent"].(map[string]any)
	if !ok || agent["temperature"] != 0.2 {
		t.Fatalf("expected numeric leaf, got %#v", models)
	}

	if err := tc.run("config", "set", "model", "gpt-5"); err != nil {
		t.Fatalf("expected set to succeed, got err=%v", err)
	}
	if fake.configPatch["model"] != "gpt-5" {
		t.Fatalf("expected plain string value, got %#v", fake.configPatch)
	}

	if err := tc.run("config", "set", "a..b", "1"); err == nil {
		t.Fatalf("expected empty key segment to fail")
	}
}

func TestConfigSetPrintsValidationErrors(t *testing.T) {
	fake := &fakeCommandClient{configErr: &client.APIError{
		StatusCode:       http.StatusUnprocessableEntity,
		Message:          "invalid config",
		ValidationErrors: []string{"body.config.port: must be int"},
	}}
	tc := newTestCLI(fake, "")

	if err := tc.run("config", "set", "port", "x"); err == nil {
		t.Fatalf("expected rejected config to fail")
	}
	if !strings.Contains(tc.stderr.String(), "  - body.config.port: must be int") {
		t.Fatalf("expected validation errors on stderr, got %q", tc.stderr.String())
	}
}

func TestConfigShowFormats(t *testing.T) {
	for _, tt := range []struct {
		format string
		want   string
	}{
		{format: "toml", want: "[server]"},
		{format: "json", want: `"server": {`},
		{format: "yaml", want: "server:"},
	} {
		tc := newTestCLI(&fakeCommandClient{}, "")
		if err := tc.run("config", "show", "--format", tt.format); err != nil {
			t.Fatalf("%s: expected show to succeed, got err=%v", tt.format, err)
		}
		out := tc.stdout.String()
		if !strings.Contains(out, tt.want) || !strings.Contains(out, "127.0.0.1:8765") {
			t.Fatalf("%s: unexpected output: %q", tt.format, out)
		}
	}

	tc := newTestCLI(&fakeCommandClient{}, "")
	if err := tc.run("config", "show", "--format", "xml"); err == nil {
		t.Fatalf("expected unsupported format to fail")
	}
}

func TestServerCommands(t *testing.T) {
	fake := &fakeServer{url: "http://127.0.0.1:8765", status: &types.ServerStatus{State: types.ServerStateReady, PID: 42}}
	tc := newTestCLI(&fakeCommandClient{}, "")
	tc.wiring.newServer = func(config.Config) serverControl { return fake }

	if err := tc.run("server", "start"); err != nil {
		t.Fatalf("expected start to succeed, got err=%v", err)
	}
	if fake.starts != 0 || !strings.Contains(tc.stdout.String(), "already running") {
		t.Fatalf("expected running server reused, starts=%d out=%q", fake.starts, tc.stdout.String())
	}

	tc.stdout.Reset()
	if err := tc.run("server", "status"); err != nil {
		t.Fatalf("expected status to succeed, got err=%v", err)
	}
	if out := tc.stdout.String(); !strings.Contains(out, "ready") || !strings.Contains(out, "pid:   42") {
		t.Fatalf("unexpected status output: %q", out)
	}

	fake.url = ""
	tc.stdout.Reset()
	if err := tc.run("server", "start"); err != nil {
		t.Fatalf("expected start to succeed, got err=%v", err)
	}
	if fake.starts != 1 || !strings.Contains(tc.stdout.String(), "server ready at http://127.0.0.1:9000") {
		t.Fatalf("expected server started, starts=%d out=%q", fake.starts, tc.stdout.String())
	}

	fake.stopErr = server.ErrServerNotRunning
	tc.stdout.Reset()
	if err := tc.run("server", "stop"); err != nil {
		t.Fatalf("expected stop of idle server to succeed, got err=%v", err)
	}
	if !strings.Contains(tc.stdout.String(), "not running") {
		t.Fatalf("unexpected stop output: %q", tc.stdout.String())
	}
}

func TestUIRequiresTerminal(t *testing.T) {
	tc := newTestCLI(&fakeCommandClient{}, "")
	var ran bool
	tc.wiring.runUI = func(context.Context, config.Config, string) error {
		ran = true
		return nil
	}

	if err := tc.run(); err == nil {
		t.Fatalf("expected ui without terminal to fail")
	}
	if ran {
		t.Fatalf("expected ui not started")
	}

	tc.wiring.isTerminal = func(io.Writer) bool { return true }
	var gotPath string
	tc.wiring.runUI = func(_ context.Context, _ config.Config, path string) error {
		ran = true
		gotPath = path
		return nil
	}
	if err := tc.run("ui"); err != nil {
		t.Fatalf("expected ui to start, got err=%v", err)
	}
	if !ran || gotPath != "/tmp/smithy/config.toml" {
		t.Fatalf("expected ui run with config path, ran=%v path=%q", ran, gotPath)
	}
	if err := tc.run("--url", "http://x", "ui"); err != nil {
		t.Fatalf("expected ui to start, got err=%v", err)
	}
	if gotPath != "" {
		t.Fatalf("expected config reload disabled with overrides, got %q", gotPath)
	}
}

func strPtr(s string) *string { return &s }

type fakeCommandClient struct {
	dialogs      *types.DialogList
	created      *types.Dialog
	createdTitle string
	currentSet   string
	deleted      []string
	history      *types.HistoryPage
	historyCall  string
	status       *types.SessionStatus
	approve      *types.ApproveResult
	approveCall  string
	reset        *types.ResetResult
	resetCalls   int
	restore      *types.RestoreResult
	restoreCall  string
	checkpoints  []types.Checkpoint
	configPatch  map[string]any
	configErr    error
	stream       []events.Event
	requests     []client.ChatRequest
}

func (f *fakeCommandClient) ListDialogs(context.Context) (*types.DialogList, error) {
	if f.dialogs == nil {
		return &types.DialogList{}, nil
	}
	return f.dialogs, nil
}

func (f *fakeCommandClient) GetDialog(_ context.Context, id string) (*types.Dialog, error) {
	if f.dialogs != nil {
		for _, dialog := range f.dialogs.Items {
			if dialog != nil && dialog.ID == id {
				return dialog, nil
			}
		}
	}
	return nil, &client.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
}

func (f *fakeCommandClient) CreateDialog(_ context.Context, title string) (*types.Dialog, error) {
	f.createdTitle = title
	return f.created, nil
}

func (f *fakeCommandClient) SetCurrentDialog(_ context.Context, id string) error {
	f.currentSet = id
	return nil
}

func (f *fakeCommandClient) UpdateDialog(context.Context, string, string) error { return nil }

func (f *fakeCommandClient) DeleteDialog(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCommandClient) History(_ context.Context, id string, limit, before int) (*types.HistoryPage, error) {
	f.historyCall = strings.Join([]string{id, strconv.Itoa(limit), strconv.Itoa(before)}, ":")
	return f.history, nil
}

func (f *fakeCommandClient) SessionStatus(context.Context, string) (*types.SessionStatus, error) {
	return f.status, nil
}

func (f *fakeCommandClient) Approve(_ context.Context, id, message string) (*types.ApproveResult, error) {
	f.approveCall = id + ":" + message
	return f.approve, nil
}

func (f *fakeCommandClient) Reset(context.Context, string) (*types.ResetResult, error) {
	f.resetCalls++
	return f.reset, nil
}

func (f *fakeCommandClient) Restore(_ context.Context, id, checkpointID string) (*types.RestoreResult, error) {
	f.restoreCall = id + ":" + checkpointID
	return f.restore, nil
}

func (f *fakeCommandClient) Checkpoints(context.Context, string) ([]types.Checkpoint, error) {
	return f.checkpoints, nil
}

func (f *fakeCommandClient) GetConfig(context.Context) (*types.ServerConfig, error) {
	return &types.ServerConfig{Config: map[string]any{"model": "gpt"}}, nil
}

func (f *fakeCommandClient) UpdateConfig(_ context.Context, patch map[string]any) (*types.ServerConfig, error) {
	f.configPatch = patch
	if f.configErr != nil {
		return nil, f.configErr
	}
	return &types.ServerConfig{Config: patch}, nil
}

func (f *fakeCommandClient) StreamChat(_ context.Context, req client.ChatRequest) chat.EventStream {
	f.requests = append(f.requests, req)
	return &sliceStream{events: f.stream}
}

type sliceStream struct {
	events []events.Event
	pos    int
}

func (s *sliceStream) Next() bool {
	if s.pos >= len(s.events) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceStream) Current() events.Event { return s.events[s.pos-1] }

func (s *sliceStream) Err() error { return nil }

func (s *sliceStream) Close() error { return nil }

type fakeServer struct {
	url     string
	status  *types.ServerStatus
	starts  int
	stopErr error
}

func (f *fakeServer) Discover(context.Context) (string, *types.ServerStatus, error) {
	if f.url == "" {
		return "", f.status, server.ErrServerNotRunning
	}
	return f.url, f.status, nil
}

func (f *fakeServer) Start(context.Context) (*exec.Cmd, error) {
	f.starts++
	return nil, nil
}

func (f *fakeServer) WaitReady(context.Context) (string, error) {
	return "http://127.0.0.1:9000", nil
}

func (f *fakeServer) Stop(context.Context) error { return f.stopErr }

