/*
Package session implements session management on top of a StateStore.

It adds optional per-session serialization (local ref-counted mutexes, plus a
DistributedLocker when several replicas share one store) around the
read-modify-write cycle of each request.
*/
package session
