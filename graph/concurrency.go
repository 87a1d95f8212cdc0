package graph

import "sync"

// SafeGo runs fn on its own goroutine under wg, recovering any panic and
// routing it to onPanic instead of crashing the process. Used to execute
// graph nodes in parallel without one node's panic taking down a run that
// other fanned-out nodes are still making progress on.
func SafeGo(wg *sync.WaitGroup, fn func(), onPanic func(panicVal any)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				onPanic(r)
			}
		}()
		fn()
	}()
}
