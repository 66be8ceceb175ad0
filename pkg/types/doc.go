// Package types defines the shared vocabulary of regkit: value type tags,
// raw values, access rights, predefined roots, key metadata, and the typed
// error taxonomy every other package returns.
//
// Design goals:
//   - Values mirror the native Windows definitions (numbers align with winnt.h).
//   - Typed errors with stable categories (not found / permission / path / ...).
//   - Backend failures are carried as Errno so callers can inspect the code.
//
// This package has no dependencies beyond the standard library.
package types
