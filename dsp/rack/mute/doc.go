// Package mute implements a dual-channel mute gate with linear fades.
//
// A single mute button toggles both channels between passing and silent.
// Every toggle starts a linear ramp whose length is a base time (0.01-1 s)
// multiplied by a scale selector (x1, x10 or x100). Toggling again while a
// ramp is running reverses it from the same relative position, so an
// interrupted fade never jumps to full volume or full silence.
package mute
