/*
Package domain contains the core models of the Arbor engine.

It defines the Component Tree produced by every Tree Build, the session-scoped
Store that survives between requests, lifecycle events and the error taxonomy.
This package is kept pure and free of I/O or persistence concerns.

# Key Entities

  - Node / Tree: the ephemeral, single-use description of the UI.
  - Kind: the closed set of node kinds (field, toggle, choice, action, form, ...).
  - Store: the session state; the only artifact that outlives a request.
  - StoreDiff: key-level changes between two Store snapshots.
*/
package domain
