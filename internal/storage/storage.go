// Package storage keeps an audit log of initData verification attempts.
// It supports multiple SQL backends through a common interface. The main
// types and interfaces are defined in types.go.
package storage
