// Package app implements the launch sequence of feedship.
//
// [Orchestrator] runs the fixed startup steps against the collaborator
// interfaces in internal/ports: read settings, apply the base endpoint,
// refresh the access token in the background, route to the initial screen,
// clear credentials on first launch, record that the first launch finished
// and, when a session exists, resolve the feed id and fan out the category
// uploads.
//
// Every failure is logged where it happens and reported to the [Observer];
// none of them stops the launch.
package app
