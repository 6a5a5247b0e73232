// Command safelistn splices a stereo dynamics processor between the sources
// feeding the JACK system playback ports and the ports themselves, and puts
// the original wiring back on exit.
package main

func main() {
	Execute()
}
