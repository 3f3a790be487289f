// Package cockpit drives a drone from UI-style controls: a comm toggle, a
// motors toggle and four hold-to-move buttons. Every state change is
// published as an immutable Status snapshot.
package cockpit
