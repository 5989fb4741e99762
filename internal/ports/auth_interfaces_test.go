package ports_test

import (
	"testing"

	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/mocks"
	doubles "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/mocks/auth"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.CredentialRefresher = (*doubles.StubRefresher)(nil)
	var _ ports.SessionTerminator = (*doubles.StubTerminator)(nil)
	var _ ports.Authenticator = (*doubles.StubAuthenticator)(nil)
	var _ ports.Navigator = (*doubles.RecordingNavigator)(nil)
	var _ ports.SnapshotStore = (*doubles.MemorySnapshotStore)(nil)
	var _ ports.CookieStore = (*doubles.MemoryCookieStore)(nil)

	var _ ports.CredentialRefresher = (*mocks.MockCredentialRefresher)(nil)
	var _ ports.SessionTerminator = (*mocks.MockSessionTerminator)(nil)
	var _ ports.Authenticator = (*mocks.MockAuthenticator)(nil)
	var _ ports.Navigator = (*mocks.MockNavigator)(nil)
	var _ ports.SnapshotStore = (*mocks.MockSnapshotStore)(nil)
	var _ ports.CookieStore = (*mocks.MockCookieStore)(nil)
}
