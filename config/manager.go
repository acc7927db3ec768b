package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/qperfect-io/mimiqlink-go/journal"
	"github.com/qperfect-io/mimiqlink-go/mimiqlink"
	"github.com/qperfect-io/mimiqlink-go/util"
)

// Env fallbacks for the CLI flags.
const (
	VarServer    = "MIMIQ_URL"
	VarTokenFile = "MIMIQ_TOKEN_FILE"
	VarWorkspace = "MIMIQ_WORKSPACE"
	VarEmail     = "MIMIQ_EMAIL"
	VarPassword  = "MIMIQ_PASSWORD"
)

const journalFile = "journal.db"

type (
	// Manager to handle the shared connection and CLI config
	Manager struct {
		Debug bool

		Server    string
		TokenFile string
		Workspace string

		JournalPath string

		Conn    *mimiqlink.Connection
		Journal *journal.Journal

		AppCtx context.Context
		Cancel context.CancelFunc
	}
)

// Init resolves the effective settings, creates the workspace and opens
// the journal and the (not yet authenticated) connection.
func (m *Manager) Init() error {
	if m.Server == "" {
		m.Server = os.Getenv(VarServer)
	}
	if m.Server == "" {
		m.Server = mimiqlink.QPerfectCloud
	}

	if m.Workspace == "" {
		m.Workspace = os.Getenv(VarWorkspace)
	}
	if m.Workspace == "" {
		home, err := os.UserHomeDir()
		if util.HasError(err) {
			return err
		}
		m.Workspace = filepath.Join(home, ".mimiq")
	}

	if m.TokenFile == "" {
		m.TokenFile = os.Getenv(VarTokenFile)
	}
	if m.TokenFile == "" {
		m.TokenFile = filepath.Join(m.Workspace, mimiqlink.DefaultTokenFile)
	}

	m.JournalPath = filepath.Join(m.Workspace, journalFile)

	if err := util.MkdirIfNotExist(m.Workspace); util.HasError(err) {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.AppCtx = ctx
	m.Cancel = cancel

	m.Conn = mimiqlink.New(m.Server, mimiqlink.WithProgress(os.Stderr))

	j, err := journal.Open(m.JournalPath)
	if util.HasError(err) {
		cancel()
		return err
	}
	m.Journal = j

	return nil
}

// OpenConnection authenticates the shared connection from the token file.
func (m *Manager) OpenConnection(ctx context.Context) error {
	return m.Conn.LoadToken(ctx, m.TokenFile)
}

func (m *Manager) PrintInfo() {
	util.LogInfo("--- [Server URL]: %s", m.Server)
	util.LogInfo("--- [Token File]: %s", m.TokenFile)
	util.LogInfo("--- [Workspace]: %s", m.Workspace)
	util.LogInfo("--- [Journal]: %s", m.JournalPath)
}

// Close release resources and connections
func (m *Manager) Close() {
	if m.Conn != nil {
		m.Conn.Close()
	}
	if m.Journal != nil {
		m.Journal.Close()
	}
	if m.Cancel != nil {
		m.Cancel()
	}
}
