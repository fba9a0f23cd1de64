package hub

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type TopicKind string

const (
	TopicTeam            TopicKind = "team"
	TopicProject         TopicKind = "project"
	TopicUserTeams       TopicKind = "user-teams"
	TopicUserConnections TopicKind = "user-connections"
)

func TeamTopic(teamID uuid.UUID) string       { return string(TopicTeam) + ":" + teamID.String() }
func ProjectTopic(projectID uuid.UUID) string { return string(TopicProject) + ":" + projectID.String() }
func UserTeamsTopic(userID uuid.UUID) string  { return string(TopicUserTeams) + ":" + userID.String() }
func UserConnectionsTopic(userID uuid.UUID) string {
	return string(TopicUserConnections) + ":" + userID.String()
}

// ParseTopic splits "kind:id" and rejects unknown kinds.
func ParseTopic(topic string) (TopicKind, uuid.UUID, error) {
	i := strings.LastIndex(topic, ":")
	if i <= 0 {
		return "", uuid.Nil, fmt.Errorf("malformed topic %q", topic)
	}
	kind := TopicKind(topic[:i])
	switch kind {
	case TopicTeam, TopicProject, TopicUserTeams, TopicUserConnections:
	default:
		return "", uuid.Nil, fmt.Errorf("unknown topic kind %q", kind)
	}
	id, err := uuid.Parse(topic[i+1:])
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("malformed topic id: %w", err)
	}
	return kind, id, nil
}
