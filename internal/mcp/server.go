package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/kbsearch-mcp/internal/embedder"
	"github.com/dshills/kbsearch-mcp/internal/engine"
	"github.com/dshills/kbsearch-mcp/internal/store"
	"github.com/dshills/kbsearch-mcp/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "kbsearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDataDir is the default location for knowledge base artifacts
	DefaultDataDir = "~/.kbsearch"
	// DBFileName is the SQLite knowledge base file
	DBFileName = "kb.db"
	// BlobFileName is the precomputed embedding blob
	BlobFileName = "embeddings.bin"
)

// Server wraps the MCP server with the search engine
type Server struct {
	mcp    *server.MCPServer
	engine *engine.Engine
}

// NewServer wires store, embedder, and engine from the artifacts in
// dataDir and registers the MCP tools
func NewServer(dataDir string, cfg types.Config) (*Server, error) {
	dataDir, err := expandHome(dataDir)
	if err != nil {
		return nil, err
	}

	cfg = cfg.Normalize()

	st, err := store.NewSQLiteStore(filepath.Join(dataDir, DBFileName), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}

	emb, err := embedder.NewFromEnv(cfg.EmbeddingDim)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	blob, err := os.ReadFile(filepath.Join(dataDir, BlobFileName))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to read embedding blob: %w", err)
	}

	eng := engine.NewEngine(cfg, st, emb, blob)
	return NewServerWithEngine(eng), nil
}

// NewServerWithEngine builds the MCP surface over an existing engine
func NewServerWithEngine(eng *engine.Engine) *Server {
	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		engine: eng,
	}
	s.registerTools()
	return s
}

// Serve initializes the engine and blocks serving MCP over stdio
func (s *Server) Serve(ctx context.Context) error {
	if err := s.engine.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer func() { _ = s.engine.Dispose() }()

	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchKBTool(), s.handleSearchKB)
	s.mcp.AddTool(kbStatusTool(), s.handleKBStatus)
}

// expandHome resolves a leading ~ against the user home directory
func expandHome(path string) (string, error) {
	if path == "" {
		path = DefaultDataDir
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
