package app

import "github.com/charmbracelet/lipgloss"

const (
	sidebarWidth     = 28
	bubblePaddingH   = 1
	reasoningPreview = 3
)

var (
	headerStyle              = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle                = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle              = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activityStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	dialogStyle              = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dialogActiveStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("70")).Bold(true)
	dialogBusyStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))
	selectedStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	dividerStyle             = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	menuDropStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("235"))
	confirmHeaderStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("251")).Background(lipgloss.Color("235")).Bold(true)
	confirmDialogBorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("208"))
	userBubbleStyle          = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(lipgloss.Color("236")).Padding(0, bubblePaddingH)
	agentBubbleStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, bubblePaddingH)
	reasoningBubbleStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("237")).Foreground(lipgloss.Color("244")).Faint(true).Padding(0, bubblePaddingH)
	toolStyle                = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	fileEditStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("180"))
	diffAddStyle             = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	diffDelStyle             = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	inlineErrorStyle         = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("160")).Foreground(lipgloss.Color("203")).Padding(0, bubblePaddingH)
	chatMetaStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	unapprovedStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("179")).Bold(true)
	toastInfoStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true)
	toastErrorStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true)
)
