package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "milo",
		Name:      "chat_requests_total",
		Help:      "Chat requests by outcome.",
	}, []string{"outcome"})

	agentChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "milo",
		Name:      "agent_chunks_total",
		Help:      "Chunks emitted by agent runs, by source.",
	}, []string{"source"})

	toolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "milo",
		Name:      "tool_invocations_total",
		Help:      "Tool calls made by agents, by tool and outcome.",
	}, []string{"tool", "outcome"})
)
