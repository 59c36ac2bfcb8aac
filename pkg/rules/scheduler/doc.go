// Package scheduler injects synthetic daily_schedule triggers into the
// rule engine.
//
// Daily is the primary scheduler: it fires once every 24 hours aligned to a
// fixed local wall-clock time (09:00 by default), surviving processes that
// start at an arbitrary time of day. Its clock is injectable so alignment
// and re-arm behavior are tested without real waiting.
//
// CronScheduler is an optional supplement for operator-defined extra
// schedules expressed as standard cron expressions.
package scheduler
