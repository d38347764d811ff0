package metadata

import (
	"sort"

	"github.com/lorec-gg/recorder-core/internal/model"
)

// wireTimeline is the /lol-match-history/v1/game-timelines/{id} response.
type wireTimeline struct {
	Frames []wireFrame `json:"frames"`
}

type wireFrame struct {
	Events []wireEvent `json:"events"`
}

// wireEvent is the union of every field any of the three timeline event
// variants (CHAMPION_KILL, BUILDING_KILL, ELITE_MONSTER_KILL) can carry,
// discriminated by Type. Riot's wire format tags these as a flat object
// rather than as nested variant payloads, so a single flattened struct
// decodes all three without a custom UnmarshalJSON.
type wireEvent struct {
	Type                    string `json:"type"`
	Timestamp               int64  `json:"timestamp"`
	KillerID                int    `json:"killerId"`
	VictimID                int    `json:"victimId"`
	AssistingParticipantIDs []int  `json:"assistingParticipantIds"`
	BuildingType            string `json:"buildingType"`
	MonsterType             string `json:"monsterType"`
	MonsterSubType          string `json:"monsterSubType"`
}

// FlattenTimeline walks every frame in order and converts the events it
// recognizes into model.IngameEvent, resolving participant IDs through
// names. Events are stable-sorted by GameTime afterward: collecting them
// in frame/within-frame order first and sorting with a stable algorithm
// means two events that tie on timestamp keep the order their
// originating frame put them in, rather than an arbitrary one.
func FlattenTimeline(timeline wireTimeline, names map[int]string) []model.IngameEvent {
	var events []model.IngameEvent
	for _, frame := range timeline.Frames {
		for _, e := range frame.Events {
			if ev, ok := translateTimelineEvent(e, names); ok {
				events = append(events, ev)
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].GameTime < events[j].GameTime
	})
	return events
}

func translateTimelineEvent(e wireEvent, names map[int]string) (model.IngameEvent, bool) {
	ev := model.IngameEvent{
		GameTime:  float64(e.Timestamp) / 1000.0,
		Killer:    names[e.KillerID],
		Assisters: namesFor(e.AssistingParticipantIDs, names),
	}

	switch e.Type {
	case "CHAMPION_KILL":
		ev.Kind = model.EventChampionKill
		ev.Victim = names[e.VictimID]
		return ev, true

	case "BUILDING_KILL":
		switch e.BuildingType {
		case "INHIBITOR_BUILDING":
			ev.Kind = model.EventInhibKilled
		case "TOWER_BUILDING":
			ev.Kind = model.EventTurretKilled
		default:
			return model.IngameEvent{}, false
		}
		return ev, true

	case "ELITE_MONSTER_KILL":
		switch e.MonsterType {
		case "DRAGON":
			ev.Kind = model.EventDragonKill
			ev.DragonType = translateDragonType(e.MonsterSubType)
		case "BARON_NASHOR":
			ev.Kind = model.EventBaronKill
		case "RIFTHERALD":
			ev.Kind = model.EventHeraldKill
		case "HORDE":
			ev.Kind = model.EventVoidgrubKill
		default:
			return model.IngameEvent{}, false
		}
		return ev, true

	default:
		return model.IngameEvent{}, false
	}
}

func translateDragonType(subType string) model.DragonType {
	switch subType {
	case "FIRE_DRAGON":
		return model.DragonInfernal
	case "EARTH_DRAGON":
		return model.DragonMountain
	case "WATER_DRAGON":
		return model.DragonOcean
	case "AIR_DRAGON":
		return model.DragonCloud
	case "HEXTECH_DRAGON":
		return model.DragonHextech
	case "CHEMTECH_DRAGON":
		return model.DragonChemtech
	case "ELDER_DRAGON":
		return model.DragonElder
	default:
		return ""
	}
}

func namesFor(ids []int, names map[int]string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = names[id]
	}
	return out
}
