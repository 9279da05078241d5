// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains all rendering logic for the chat interface: the
// header, the scrollable message area, credit and error banners, the input
// area, the status bar, and the chat list overlay.
package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lumen-tui/internal/credits"
	"github.com/jeranaias/lumen-tui/internal/model"
	"github.com/jeranaias/lumen-tui/internal/session"
	"github.com/jeranaias/lumen-tui/internal/transport"
	"github.com/jeranaias/lumen-tui/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the complete chat view.
// Layout: header (1 line) + [banner] + messages (viewport) + input (2 lines) + status (1 line)
// Total height must equal m.height exactly to prevent overflow/underflow.
func (m Model) View() string {
	if !m.ready || m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showList {
		return m.renderChatList()
	}
	if m.showTopUp {
		return m.renderTopUp()
	}

	header := m.renderHeader()
	banner := m.renderBanner()
	input := m.renderInput()
	status := m.renderStatusBar()

	availableHeight := m.height -
		lipgloss.Height(header) -
		lipgloss.Height(input) -
		lipgloss.Height(status)
	if banner != "" {
		availableHeight -= lipgloss.Height(banner)
	}
	if availableHeight < 1 {
		availableHeight = 1
	}

	messages := m.viewport.View()
	if lipgloss.Height(messages) != availableHeight {
		// Viewport height mismatch - force correct height to prevent layout
		// breakage. The root sizing lives in handleResize.
		messages = lipgloss.NewStyle().
			Height(availableHeight).
			MaxHeight(availableHeight).
			Width(m.width).
			Render(messages)
	}

	if banner != "" {
		return lipgloss.JoinVertical(lipgloss.Left, header, banner, messages, input, status)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, messages, input, status)
}

// bannerHeight returns the height the active banner occupies, for viewport
// sizing during resize.
func (m Model) bannerHeight() int {
	if b := m.renderBanner(); b != "" {
		return lipgloss.Height(b)
	}
	return 0
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	brand := m.theme.HeaderBrand.Render("lumen")

	title := "New Chat"
	if conv := m.ctrl.Conversation(); conv != nil {
		title = conv.Summary().Title
	}
	titleText := m.theme.HeaderTitle.Render(util.TruncateRunesNoEllipsis(title, 48))

	line := brand + "  " + titleText
	return m.theme.Header.Width(m.width).Render(line)
}

// =============================================================================
// BANNERS
// =============================================================================

// renderBanner returns the highest-priority banner, or "" when none apply.
// Priority: error > exhausted credits > low credits.
func (m Model) renderBanner() string {
	if m.lastErr != nil && m.state == session.StateErrored {
		text := fmt.Sprintf("Something went wrong: %s  (ctrl+r to retry)", errorSummary(m.lastErr))
		return m.theme.ErrorBanner.Width(m.width).Render(text)
	}
	if m.ledger.Exhausted() {
		text := fmt.Sprintf("Out of credits (%d left, messages cost %d). Press ctrl+b to top up.",
			m.ledger.Balance(), credits.MessageCost)
		return m.theme.ErrorBanner.Width(m.width).Render(text)
	}
	if m.ledger.Low() {
		text := fmt.Sprintf("Running low: %d credits remaining.", m.ledger.Balance())
		return m.theme.WarnBanner.Width(m.width).Render(text)
	}
	return ""
}

// errorSummary keeps banner text short and free of wrapped error chains.
func errorSummary(err error) string {
	var cerr *transport.ClientError
	if errors.As(err, &cerr) {
		return cerr.Message
	}
	return util.TruncateRunes(err.Error(), 80)
}

// =============================================================================
// MESSAGES
// =============================================================================

// refreshViewport re-renders the conversation into the viewport.
func (m *Model) refreshViewport(gotoBottom bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderMessages() string {
	conv := m.ctrl.Conversation()
	if conv == nil || len(conv.Messages) == 0 {
		return m.renderEmptyState()
	}

	var sb strings.Builder
	for i, msg := range conv.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderMessage(msg))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderMessage(msg *model.Message) string {
	bubbleWidth := m.width - 6
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	switch msg.Role {
	case model.RoleUser:
		label := m.theme.RoleLabel.Render("You")
		body := m.theme.UserBubble.MaxWidth(bubbleWidth).Render(msg.Content)
		return label + "\n" + body

	case model.RoleAssistant:
		label := m.theme.RoleLabel.Render(m.ctrl.Mode().DisplayName())
		content := msg.DisplayContent()
		if content == "" && msg.IsStreaming {
			return label + "\n" + m.theme.Muted.Render("  "+m.spinner.View()+" thinking...")
		}
		// Markdown rendering is skipped mid-stream; partial markdown
		// renders worse than plain text.
		if m.markdown && !msg.IsStreaming {
			if rendered, err := m.renderer.Render(content); err == nil {
				content = strings.TrimRight(rendered, "\n")
			}
		}
		body := m.theme.AssistantBubble.MaxWidth(bubbleWidth).Render(content)
		return label + "\n" + body
	}

	return msg.Content
}

func (m Model) renderEmptyState() string {
	lines := []string{
		"",
		m.theme.Muted.Render("  Start a conversation. Your first message names the chat."),
		"",
		m.theme.Muted.Render(fmt.Sprintf("  Each message costs %d credits. You have %d.",
			credits.MessageCost, m.ledger.Balance())),
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// INPUT AREA
// =============================================================================

func (m Model) renderInput() string {
	var line string
	switch {
	case m.state == session.StateSubmitted:
		line = m.theme.Muted.Render(m.spinner.View() + " waiting for response...")
	case m.state == session.StateStreaming:
		line = m.theme.Muted.Render(m.spinner.View() + " streaming (esc to stop)")
	default:
		line = m.input.View()
	}
	return m.theme.InputContainer.Width(m.width).Render(line)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	if m.statusMsg != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.statusMsg)
	}

	mode := m.theme.StatusMode.Render(m.ctrl.Mode().DisplayName())

	var endpoint string
	if m.endpoint == transport.EndpointFallback {
		endpoint = m.theme.StatusFallback.Render("fallback")
	} else {
		endpoint = m.theme.StatusEndpoint.Render("primary")
	}

	balance := m.ledger.Balance()
	creditsText := fmt.Sprintf("%d credits", balance)
	switch {
	case m.ledger.Exhausted():
		creditsText = m.theme.CreditsEmpty.Render(creditsText)
	case m.ledger.Low():
		creditsText = m.theme.CreditsLow.Render(creditsText)
	default:
		creditsText = m.theme.CreditsOK.Render(creditsText)
	}

	// Rough size of what the next request will carry, so long chats are
	// visible before they get expensive to send.
	tokens := m.theme.Muted.Render(fmt.Sprintf("~%d tok", m.ctrl.Conversation().EstimateTokens()))

	var hints []string
	for _, b := range m.keyMap.ShortHelp() {
		hints = append(hints,
			m.theme.ShortcutKey.Render(b.Help().Key)+" "+m.theme.ShortcutDesc.Render(b.Help().Desc))
	}

	left := mode + " | " + endpoint + " | " + creditsText + " | " + tokens
	right := strings.Join(hints, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return m.theme.StatusBar.Width(m.width).Render(left)
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// CHAT LIST OVERLAY
// =============================================================================

func (m Model) renderChatList() string {
	boxWidth := m.width * 2 / 3
	if boxWidth < 40 {
		boxWidth = m.width - 4
	}
	if boxWidth < 20 {
		boxWidth = 20
	}

	var sb strings.Builder
	sb.WriteString(m.theme.ListTitle.Render("Chats"))
	sb.WriteString("\n\n")

	if len(m.listItems) == 0 {
		sb.WriteString(m.theme.ListPreview.Render("No saved chats yet."))
	}

	for i, item := range m.listItems {
		// Cell-width truncation: rune counts undershoot for wide CJK
		// titles and overflow the box.
		title := util.TruncateWidth(item.Title, boxWidth-20)
		line := fmt.Sprintf("%s  %s", title, item.LastMessageAt.Format("Jan 2 15:04"))
		if i == m.listIndex {
			sb.WriteString(m.theme.ListItemSelected.Render("> " + line))
		} else {
			sb.WriteString(m.theme.ListItem.Render("  " + line))
		}
		sb.WriteString("\n")
		sb.WriteString(m.theme.ListPreview.Render("    " + item.Preview))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.theme.Muted.Render("enter open | ctrl+d delete | esc close"))

	box := m.theme.ListBox.Width(boxWidth).Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// TOP-UP OVERLAY
// =============================================================================

func (m Model) renderTopUp() string {
	boxWidth := 44
	if boxWidth > m.width-4 {
		boxWidth = m.width - 4
	}
	if boxWidth < 20 {
		boxWidth = 20
	}

	var sb strings.Builder
	sb.WriteString(m.theme.ListTitle.Render("Top Up Credits"))
	sb.WriteString("\n")
	sb.WriteString(m.theme.ListPreview.Render(fmt.Sprintf("Balance: %d credits", m.ledger.Balance())))
	sb.WriteString("\n\n")

	for i, pkg := range credits.Packages {
		line := fmt.Sprintf("%-10s %4d credits  %s", pkg.Name, pkg.Credits, pkg.Price)
		if i == m.topUpIndex {
			sb.WriteString(m.theme.ListItemSelected.Render("> " + line))
		} else {
			sb.WriteString(m.theme.ListItem.Render("  " + line))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.theme.Muted.Render("enter buy | esc close"))

	box := m.theme.ListBox.Width(boxWidth).Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
