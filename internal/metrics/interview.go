package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"peerprep/interview/internal/models"
)

// Interview collects state machine metrics. It satisfies interview.Observer
// and is shared by every session of the process.
type Interview struct {
	phaseTransitions  *prometheus.CounterVec
	evaluations       *prometheus.CounterVec
	evaluationLatency *prometheus.HistogramVec
	difficultyChanges *prometheus.CounterVec
	followUps         prometheus.Counter
	completed         prometheus.Counter
}

func NewInterview(reg prometheus.Registerer) *Interview {
	factory := promauto.With(reg)
	return &Interview{
		phaseTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerprep",
			Subsystem: "interview",
			Name:      "phase_transitions_total",
			Help:      "Interview phase transitions",
		}, []string{"from", "to"}),
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerprep",
			Subsystem: "interview",
			Name:      "evaluations_total",
			Help:      "Answer evaluations by outcome (ok, fallback, skipped)",
		}, []string{"outcome"}),
		evaluationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "peerprep",
			Subsystem: "interview",
			Name:      "evaluation_duration_seconds",
			Help:      "Time from answer submission to evaluation result",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"outcome"}),
		difficultyChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerprep",
			Subsystem: "interview",
			Name:      "difficulty_changes_total",
			Help:      "Adaptive difficulty changes",
		}, []string{"direction"}),
		followUps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peerprep",
			Subsystem: "interview",
			Name:      "follow_ups_total",
			Help:      "Follow-up questions asked",
		}),
		completed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peerprep",
			Subsystem: "interview",
			Name:      "sessions_completed_total",
			Help:      "Sessions that reached the completed phase",
		}),
	}
}

// TrackActiveSessions exports count() as the live session gauge.
func (m *Interview) TrackActiveSessions(reg prometheus.Registerer, count func() int) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "peerprep",
		Subsystem: "interview",
		Name:      "active_sessions",
		Help:      "Live interview sessions held by this process",
	}, func() float64 { return float64(count()) })
}

func (m *Interview) PhaseChanged(from, to models.Phase) {
	m.phaseTransitions.WithLabelValues(string(from), string(to)).Inc()
	if to == models.PhaseCompleted {
		m.completed.Inc()
	}
}

func (m *Interview) EvaluationFinished(outcome string, took time.Duration) {
	m.evaluations.WithLabelValues(outcome).Inc()
	m.evaluationLatency.WithLabelValues(outcome).Observe(took.Seconds())
}

func (m *Interview) DifficultyChanged(from, to models.Difficulty) {
	direction := "down"
	if to.Level() > from.Level() {
		direction = "up"
	}
	m.difficultyChanges.WithLabelValues(direction).Inc()
}

func (m *Interview) FollowUpAsked() {
	m.followUps.Inc()
}
