// Package setup registers and removes the rtindex MCP server in the config
// files of supported coding agents (Claude Code, Cursor, Codex, OpenCode).
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ServerName is the key the MCP server is registered under.
const ServerName = "rtindex"

// Result is the return value from all Setup/Uninstall functions.
type Result struct {
	Status  string // always "ok"
	Message string
}

func ok(msg string) Result          { return Result{Status: "ok", Message: msg} }
func okf(f string, a ...any) Result { return ok(fmt.Sprintf(f, a...)) }

// Entry is the command line an agent runs to start the MCP server.
type Entry struct {
	Command    string
	ConfigPath string // passed as --config when set
}

// NewEntry returns the entry for the rtindex binary reading configPath.
func NewEntry(configPath string) Entry {
	return Entry{Command: "rtindex", ConfigPath: configPath}
}

// Args returns the arguments following Command.
func (e Entry) Args() []string {
	if e.ConfigPath == "" {
		return []string{"mcp"}
	}
	return []string{"--config", e.ConfigPath, "mcp"}
}

func (e Entry) mcpServer() map[string]any {
	return map[string]any{
		"command": e.Command,
		"args":    toAny(e.Args()),
		"type":    "stdio",
	}
}

func (e Entry) opencode() map[string]any {
	return map[string]any{
		"type":    "local",
		"command": toAny(append([]string{e.Command}, e.Args()...)),
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// ---------------------------------------------------------------------------
// Default path helpers
// ---------------------------------------------------------------------------

// DefaultClaudeHome returns the default ~/.claude directory.
func DefaultClaudeHome() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude")
}

// DefaultCursorHome returns the default ~/.cursor directory.
func DefaultCursorHome() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cursor")
}

// DefaultCodexHome returns the default ~/.codex directory.
func DefaultCodexHome() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codex")
}

// OpencodeConfigPath returns opencode.json in the working directory when
// project is set, the user-wide file otherwise.
//
//revive:disable:flag-parameter
func OpencodeConfigPath(project bool) string {
	if project {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, "opencode.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "opencode", "opencode.json")
}

//revive:enable:flag-parameter

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func readJSON(path string) map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		return make(map[string]any)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return make(map[string]any)
	}
	return m
}

func writeJSON(path string, data map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644) // #nosec G306 -- agent config files hold no credentials
}

// installEntry adds value under data[section][ServerName]. An existing entry
// is left alone.
func installEntry(path, section string, value map[string]any) (bool, error) {
	data := readJSON(path)
	servers, _ := data[section].(map[string]any)
	if servers == nil {
		servers = make(map[string]any)
		data[section] = servers
	}
	if _, exists := servers[ServerName]; exists {
		return false, nil
	}
	servers[ServerName] = value
	return true, writeJSON(path, data)
}

// uninstallEntry removes data[section][ServerName], dropping the section and
// then the file when they become empty.
func uninstallEntry(path, section string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	data := readJSON(path)
	servers, _ := data[section].(map[string]any)
	if _, exists := servers[ServerName]; !exists {
		return false, nil
	}
	delete(servers, ServerName)
	if len(servers) == 0 {
		delete(data, section)
	}
	if len(data) == 0 {
		return true, os.Remove(path)
	}
	return true, writeJSON(path, data)
}

// ---------------------------------------------------------------------------
// TOML helpers (text-based; only handles the [mcp_servers.rtindex] table)
// ---------------------------------------------------------------------------

const tomlHeader = "[mcp_servers." + ServerName + "]"

func tomlSection(e Entry) string {
	args := make([]string, 0, len(e.Args()))
	for _, a := range e.Args() {
		args = append(args, strconv.Quote(a))
	}
	return fmt.Sprintf("\n%s\ncommand = %s\nargs = [%s]\n", tomlHeader, strconv.Quote(e.Command), strings.Join(args, ", "))
}

func hasTOMLSection(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), tomlHeader)
}

func appendTOMLSection(path string, e Entry) (bool, error) {
	if hasTOMLSection(path) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, err
	}
	defer f.Close()
	_, err = f.WriteString(tomlSection(e))
	return err == nil, err
}

func removeTOMLSection(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	content := string(data)
	if !strings.Contains(content, tomlHeader) {
		return false, nil
	}
	// Skip the header and its key-value pairs up to the next table or EOF.
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))
	inSection := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == tomlHeader {
			inSection = true
			continue
		}
		if inSection && strings.HasPrefix(trimmed, "[") {
			inSection = false
		}
		if !inSection {
			result = append(result, line)
		}
	}
	cleaned := strings.TrimRight(strings.Join(result, "\n"), "\n") + "\n"
	if strings.TrimSpace(cleaned) == "" {
		return true, os.Remove(path)
	}
	return true, os.WriteFile(path, []byte(cleaned), 0o644) // #nosec G306 -- agent TOML config is not a credential file
}

// ---------------------------------------------------------------------------
// Claude Code
// ---------------------------------------------------------------------------

//revive:disable:flag-parameter
func claudeMCPPath(claudeHome string, project bool) string {
	if project {
		return filepath.Join(filepath.Dir(claudeHome), ".mcp.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude.json")
}

func claudeScope(project bool) string {
	if project {
		return ".mcp.json"
	}
	return "~/.claude.json"
}

// SetupClaudeCode registers the MCP server with Claude Code.
// claudeHome defaults to ~/.claude when empty.
func SetupClaudeCode(claudeHome string, project bool, e Entry) Result {
	if claudeHome == "" {
		claudeHome = DefaultClaudeHome()
	}
	added, err := installEntry(claudeMCPPath(claudeHome, project), "mcpServers", e.mcpServer())
	if err != nil {
		return okf("Failed: %v", err)
	}
	if added {
		return okf("Installed: mcpServers in %s", claudeScope(project))
	}
	return ok("Already installed")
}

// UninstallClaudeCode removes the MCP server from Claude Code.
func UninstallClaudeCode(claudeHome string, project bool) Result {
	if claudeHome == "" {
		claudeHome = DefaultClaudeHome()
	}
	if done, err := uninstallEntry(claudeMCPPath(claudeHome, project), "mcpServers"); err == nil && done {
		return okf("Removed: mcpServers from %s", claudeScope(project))
	}
	return ok("Nothing to remove")
}

//revive:enable:flag-parameter

// ---------------------------------------------------------------------------
// Cursor
// ---------------------------------------------------------------------------

// SetupCursor registers the MCP server with Cursor.
// cursorHome defaults to ~/.cursor when empty.
func SetupCursor(cursorHome string, e Entry) Result {
	if cursorHome == "" {
		cursorHome = DefaultCursorHome()
	}
	added, err := installEntry(filepath.Join(cursorHome, "mcp.json"), "mcpServers", e.mcpServer())
	if err != nil {
		return okf("Failed: %v", err)
	}
	if added {
		return ok("Installed: mcpServers")
	}
	return ok("Already installed")
}

// UninstallCursor removes the MCP server from Cursor.
func UninstallCursor(cursorHome string) Result {
	if cursorHome == "" {
		cursorHome = DefaultCursorHome()
	}
	if done, err := uninstallEntry(filepath.Join(cursorHome, "mcp.json"), "mcpServers"); err == nil && done {
		return ok("Removed: mcpServers")
	}
	return ok("Nothing to remove")
}

// ---------------------------------------------------------------------------
// Codex
// ---------------------------------------------------------------------------

// SetupCodex registers the MCP server in Codex's config.toml.
// codexHome defaults to ~/.codex when empty.
func SetupCodex(codexHome string, e Entry) Result {
	if codexHome == "" {
		codexHome = DefaultCodexHome()
	}
	added, err := appendTOMLSection(filepath.Join(codexHome, "config.toml"), e)
	if err != nil {
		return okf("Failed: %v", err)
	}
	if added {
		return ok("Installed: config.toml")
	}
	return ok("Already installed")
}

// UninstallCodex removes the MCP server from Codex's config.toml.
func UninstallCodex(codexHome string) Result {
	if codexHome == "" {
		codexHome = DefaultCodexHome()
	}
	if done, err := removeTOMLSection(filepath.Join(codexHome, "config.toml")); err == nil && done {
		return ok("Removed: config.toml")
	}
	return ok("Nothing to remove")
}

// ---------------------------------------------------------------------------
// OpenCode
// ---------------------------------------------------------------------------

// SetupOpencode registers the MCP server in the opencode.json at path.
func SetupOpencode(path string, e Entry) Result {
	added, err := installEntry(path, "mcp", e.opencode())
	if err != nil {
		return okf("Failed: %v", err)
	}
	if added {
		return okf("Installed: mcp in %s", path)
	}
	return ok("Already installed")
}

// UninstallOpencode removes the MCP server from the opencode.json at path.
func UninstallOpencode(path string) Result {
	if done, err := uninstallEntry(path, "mcp"); err == nil && done {
		return okf("Removed: mcp from %s", path)
	}
	return ok("Nothing to remove")
}
