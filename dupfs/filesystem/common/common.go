package common

// This package contains shared utilities and types used across filesystem packages.
// It provides validation, typed scan errors, path helpers and scan metrics.
