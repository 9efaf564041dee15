package schedule

// ThrottleTail returns a trigger that runs handler on a later task. Calls made
// before that task runs are folded into it, so at most one invocation is ever
// pending. A call made while handler runs schedules one more invocation.
func ThrottleTail(handler func(), s Scheduler) func() {
	scheduled := false
	run := func() {
		scheduled = false
		handler()
	}
	return func() {
		if scheduled {
			return
		}
		scheduled = true
		s.Schedule(run)
	}
}
