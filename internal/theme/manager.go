package theme

// Manager handles theme selection and management
type Manager struct {
	currentTheme Theme
}

func NewManager(t Theme) *Manager {
	if t == nil {
		t = NewProfessionalTheme()
	}
	return &Manager{currentTheme: t}
}

// GetCurrentTheme returns the currently active theme
func (m *Manager) GetCurrentTheme() Theme {
	return m.currentTheme
}
