package model

// Operation is the script lifecycle operation a template renders.
type Operation string

const (
	// OperationInstall renders the installation script of an integration.
	OperationInstall Operation = "install"
	// OperationUninstall renders the uninstallation script of an integration.
	OperationUninstall Operation = "uninstall"
	// OperationVerify renders the post-install verification script.
	OperationVerify Operation = "verify"
	// OperationRollback renders the best-effort compensating script.
	OperationRollback Operation = "rollback"
)

// RenderedScript is an immutable rendered script plus the resolved template
// path that produced it.
type RenderedScript struct {
	Text         string
	TemplatePath string
}
