/*
Package event provides the pub/sub event system used to report what an apply
cycle, a settings change or a consistency check did.

# Architecture

Direct subscribers are called with the typed event, either in their own
goroutine (Publish) or in the publisher's goroutine (PublishSync). Every event
is also encoded as JSON and published on the watermill gochannel topic
"flexmod.events"; Stream turns that topic back into a channel of events whose
Data is a json.RawMessage, which is what the SSE endpoint forwards.

# Event Types

Patch events, one per file or expression touched:
  - patch.applied: a target file was rewritten
  - patch.unchanged: the file already held the wanted content
  - patch.skipped: the unit could not be applied (see Reason)

Cycle events:
  - apply.completed: an apply-all run finished
  - check.completed: the consistency checks finished

Store events:
  - settings.updated: player_settings.json was written
  - document.updated: FlexMod.json was written or recovered

Watcher events:
  - file.changed: a watched settings file changed on disk

# Basic Usage

	event.Publish(event.Event{
		Type: event.PatchApplied,
		Data: event.PatchData{Mod: "Lamp", BlockID: "Light", File: "f.xml"},
	})

	unsubscribe := event.Subscribe(event.PatchSkipped, func(e event.Event) {
		data := e.Data.(event.PatchData)
		logging.Warn().Str("block", data.BlockID).Msg(data.Reason)
	})
	defer unsubscribe()

# Subscriber Safety Guidelines

Subscribers run by PublishSync must return quickly, must not publish
themselves and must not take locks the publisher may hold. Use a
non-blocking channel send to hand work to another goroutine.

# Testing

Use NewBus for an isolated bus, or Reset to replace the global one.
*/
package event
