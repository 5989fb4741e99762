// Package mocks provides mock implementations for testing the portfolio client.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	refresher := mocks.NewMockCredentialRefresher(ctrl)
//	refresher.EXPECT().Refresh(gomock.Any()).Return(nil)
package mocks

// Generate mocks for the auth ports from internal/ports.
// This creates MockCredentialRefresher, MockSessionTerminator, MockAuthenticator,
// MockNavigator, MockSnapshotStore and MockCookieStore.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports CredentialRefresher,SessionTerminator,Authenticator,Navigator,SnapshotStore,CookieStore
