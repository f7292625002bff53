/*
Package ports defines the interfaces between the Arbor engine and the outside world.

# Key Interfaces

  - Engine: the verbs an app answers (Page, Sync, Act, SubmitForm, Complete).
  - StateStore: persists one session Store per session ID.
  - DistributedLocker: serialises access to a session across replicas.
  - DefinitionLoader: where declarative definitions come from.
  - DiffDispatcher: receives the Store changes produced by each request.
*/
package ports
