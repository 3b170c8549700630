// Package timerservice provides NSTimer-style one-shot and repeating timers
// backed by workgraph yieldable nodes, grounded on src/Core/Timer.cpp and
// src/Core/TimerService.cpp. No dedicated timer thread is used: each timer
// is a node that yields until its fire time, and
// a single self-rescheduling pump contract drives the owning graph's timed
// queue forward.
package timerservice
