package bridge

import "fmt"

var global NativeCamera

// Register is called once from native (Swift/Kotlin) before Start().
func Register(c NativeCamera) {
	global = c
}

// Get returns the registered camera. Panics if Register was never called.
func Get() NativeCamera {
	if global == nil {
		panic("bridge: no NativeCamera registered — call bridge.Register() before bridge.Start()")
	}
	return global
}

// Safe returns the camera and an error instead of panicking.
func Safe() (NativeCamera, error) {
	if global == nil {
		return nil, fmt.Errorf("bridge: no NativeCamera registered")
	}
	return global, nil
}
