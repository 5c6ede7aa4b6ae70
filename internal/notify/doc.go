// Package notify attaches lifecycle messages to the entities exchange
// records concern.
//
// A Notifier turns (record, level, message) into an ir.Notification and
// hands it to a Sink. Sinks:
//   - EntityRegistry: routes by related entity kind to an ActivityLogger.
//     Kinds without a handler are a silent no-op.
//   - EventPublisher: publishes canonical JSON to an NSQ topic.
//   - Multi: fans out to several sinks.
//
// Delivery failures never fail the lifecycle operation; they are logged.
package notify
