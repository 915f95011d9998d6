// Package resolve implements the cross-language reference resolver: the
// byte-for-byte normalization rules used to match HTTP routes, RPC paths and
// message channels across service boundaries, plus the post-write linking
// pass that turns unresolved edges and matching literals into graph links.
package resolve

import (
	"net/url"
	"strings"

	"github.com/lidxdev/lidx/internal/models"
)

// topicContainers are known topic/queue container class or enum names whose
// dotted prefix should be stripped before normalizing a channel name.
var topicContainers = map[string]bool{
	"Topics": true, "TopicName": true, "TopicNames": true, "Topic": true,
	"Channels": true, "Channel": true, "Queues": true, "Queue": true,
	"QueueName": true, "QueueNames": true, "EventType": true, "EventTypes": true,
	"Subjects": true, "Subject": true,
}

// busReceiverPatterns are the last-dotted-segment names that mark a receiver
// expression as a message bus client.
var busReceiverPatterns = map[string]bool{
	"_bus": true, "_messages": true, "_messageBus": true, "bus": true, "Bus": true,
	"messageBus": true, "MessageBus": true, "_publisher": true, "publisher": true,
	"_eventBus": true, "eventBus": true, "_serviceBus": true, "serviceBus": true,
	"_queue": true, "_channel": true,
}

var publishMethods = map[string]bool{
	"PublishAsync": true, "Publish": true, "publish": true, "publish_async": true,
	"SendAsync": true, "Send": true, "send": true, "emit": true, "Emit": true,
	"dispatch": true, "Dispatch": true,
}

var subscribeMethods = map[string]bool{
	"SubscribeAsync": true, "Subscribe": true, "subscribe": true, "subscribe_async": true,
	"on": true, "On": true, "AddHandler": true, "add_handler": true, "listen": true, "Listen": true,
}

var httpMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true, "OPTIONS": true, "HEAD": true,
}

// NormalizeChannelName strips a known topic-container prefix (Topics.,
// TopicName., ...), removes underscores, and lower-cases the remainder, so
// that "Topics.OrchestratorTriggers", "TopicName.ORCHESTRATOR_TRIGGERS" and
// bare "OrchestratorTriggers" all collapse to
// "channel://orchestratortriggers". Returns "" if raw carries no name at all.
func NormalizeChannelName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	part := stripTopicContainer(trimmed)
	if part == "" {
		return ""
	}

	var sb strings.Builder
	for _, r := range part {
		if r == '_' {
			continue
		}
		sb.WriteRune(r)
	}
	normalized := strings.ToLower(sb.String())
	if normalized == "" {
		return ""
	}
	return "channel://" + normalized
}

func stripTopicContainer(raw string) string {
	prefix, suffix, ok := strings.Cut(raw, ".")
	if !ok {
		return raw
	}
	if idx := strings.LastIndex(prefix, "."); idx >= 0 {
		prefix = prefix[idx+1:]
	}
	if topicContainers[prefix] {
		return suffix
	}
	return raw
}

// IsBusReceiver reports whether receiver's last dotted segment matches a
// known message-bus client name.
func IsBusReceiver(receiver string) bool {
	last := receiver
	if idx := strings.LastIndex(receiver, "."); idx >= 0 {
		last = receiver[idx+1:]
	}
	last = strings.TrimSpace(last)
	return last != "" && busReceiverPatterns[last]
}

// IsPublishMethod reports whether name is a recognized publish-style method.
func IsPublishMethod(name string) bool { return publishMethods[name] }

// IsSubscribeMethod reports whether name is a recognized subscribe-style method.
func IsSubscribeMethod(name string) bool { return subscribeMethods[name] }

// NormalizeHTTPMethod upper-cases an HTTP verb, folds ALL/ANY to "ANY", and
// strips a trailing "Async" suffix (POSTASYNC -> POST). Returns "" if raw is
// not a recognized verb.
func NormalizeHTTPMethod(raw string) string {
	trimmed := strings.Trim(strings.TrimSpace(raw), `"`)
	if trimmed == "" {
		return ""
	}
	upper := strings.ToUpper(trimmed)
	if upper == "ALL" || upper == "ANY" {
		return "ANY"
	}
	if httpMethods[upper] {
		return upper
	}
	if strings.HasSuffix(upper, "ASYNC") && len(upper) > len("ASYNC") {
		stripped := upper[:len(upper)-len("ASYNC")]
		if httpMethods[stripped] {
			return stripped
		}
	}
	return ""
}

// NormalizeRoutePath canonicalizes an HTTP route path: lower-case,
// URL-decode, collapse repeated slashes, and drop a trailing slash unless
// the path is the root.
func NormalizeRoutePath(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "/"
	}
	if decoded, err := url.PathUnescape(trimmed); err == nil {
		trimmed = decoded
	}
	trimmed = strings.ToLower(trimmed)
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}

	segments := strings.Split(trimmed, "/")
	var kept []string
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return "/"
	}
	return "/" + strings.Join(kept, "/")
}

// NormalizeGRPCPath trims surrounding whitespace from a gRPC method path and
// lower-cases it; it does not otherwise reshape the path.
func NormalizeGRPCPath(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// bridgeComplements maps an edge kind to the kind(s) its other endpoint must
// carry to be considered a cross-boundary bridge.
var bridgeComplements = map[models.EdgeKind][]models.EdgeKind{
	models.EdgeChannelPublish:   {models.EdgeChannelSubscribe},
	models.EdgeChannelSubscribe: {models.EdgeChannelPublish},
	models.EdgeRPCCall:          {models.EdgeRPCImpl},
	models.EdgeRPCImpl:          {models.EdgeRPCCall},
	models.EdgeHTTPCall:         {models.EdgeHTTPRoute},
	models.EdgeHTTPRoute:        {models.EdgeHTTPCall},
}

// BridgeComplement returns the edge kind(s) that bridge across a service
// boundary from kind, or nil if kind doesn't participate in bridging.
func BridgeComplement(kind models.EdgeKind) []models.EdgeKind {
	return bridgeComplements[kind]
}

// BoundaryType classifies a bridging edge kind by transport.
func BoundaryType(kind models.EdgeKind) string {
	switch kind {
	case models.EdgeChannelPublish, models.EdgeChannelSubscribe:
		return "message_bus"
	case models.EdgeRPCCall, models.EdgeRPCImpl, models.EdgeRPCRoute:
		return "grpc"
	case models.EdgeHTTPCall, models.EdgeHTTPRoute:
		return "http"
	default:
		return "other"
	}
}
