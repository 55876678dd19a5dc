// Package containers starts throwaway service containers for integration tests.
//
// Every file in this package carries the integration build tag, so the
// package only compiles under:
//
//	go test -tags=integration ./...
//
// Supported services:
//
//   - MySQL 8.0, used by the rule repository tests
//   - Eclipse Mosquitto, used by the MQTT reading bridge tests
//   - ntfy, used by the push notifier tests
//
// Each constructor accepts a nil config for defaults and returns a wrapper
// whose Terminate method removes the container. Containers are never reused
// between test runs.
package containers
