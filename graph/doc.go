// Package graph splices a stereo processor into an audio server's port graph
// and restores the original wiring afterwards.
//
// The server's connection table is reached only through a Host capability
// passed to NewRewirer. Rewirer.Arrange redirects every source feeding the
// two playback ports into the processor inputs, one edge at a time and always
// disconnect-before-connect, then connects the processor outputs to the
// playback ports. Rewirer.Disarrange reverses this. Individual connect or
// disconnect failures never abort either routine; they are collected in a
// Report.
package graph
