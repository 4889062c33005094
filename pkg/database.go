package paqalign

import (
	"database/sql"
	"fmt"
	"sort"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx"
	"golang.org/x/exp/maps"
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

// Recording is a registry entry describing where the files of one imaging
// session live.
type Recording struct {
	SessionID    string  `db:"SessionID"`
	PaqPath      string  `db:"PaqPath"`
	BehaviorPath string  `db:"BehaviorPath"`
	FluPath      string  `db:"FluPath"`
	Rig          string  `db:"Rig"`
	ImagingRate  float64 `db:"ImagingRate"`
	TseriesLens  []int   `db:"-"`
}

type tseriesLengthEntry struct {
	Block  int `db:"Block"`
	Frames int `db:"Frames"`
}

type channelRoleEntry struct {
	Role        string          `db:"Role"`
	ChannelName string          `db:"ChannelName"`
	Threshold   float64         `db:"Threshold"`
	Cutoff      sql.NullFloat64 `db:"Cutoff"`
	Distance    sql.NullFloat64 `db:"Distance"`
}

// ChannelRoles maps a role (frame_clock, reward, lick) to the channel that
// carries it on a rig.
type ChannelRoles map[string]ChannelConfig

func GetRecordingFromDB(db *sqlx.DB, sessionID string) (*Recording, error) {
	query := "SELECT SessionID, PaqPath, COALESCE(BehaviorPath, '') AS BehaviorPath, " +
		"COALESCE(FluPath, '') AS FluPath, Rig, ImagingRate FROM Recordings WHERE SessionID = ?"
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Reading recording %s from database", sessionID), "database")
	}
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s", query), "database")
	}

	rows, err := db.Queryx(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	var recording *Recording
	for rows.Next() {
		result := Recording{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		recording = &result
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading DB rows: %w", err)
	}
	if recording == nil {
		return nil, fmt.Errorf("recording %q not found in database", sessionID)
	}

	recording.TseriesLens, err = getTseriesLengthsFromDB(db, sessionID)
	if err != nil {
		return nil, err
	}
	return recording, nil
}

func getTseriesLengthsFromDB(db *sqlx.DB, sessionID string) ([]int, error) {
	query := "SELECT Block, Frames FROM TseriesLengths WHERE SessionID = ? ORDER BY Block"
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s", query), "database")
	}
	rows, err := db.Queryx(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	lengths := make([]int, 0)
	for rows.Next() {
		result := tseriesLengthEntry{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		lengths = append(lengths, result.Frames)
	}
	return lengths, rows.Err()
}

func GetChannelRolesFromDB(db *sqlx.DB, rig string) (ChannelRoles, error) {
	query := "SELECT Role, ChannelName, Threshold, Cutoff, Distance FROM ChannelRoles WHERE Rig = ?"
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Channel roles for rig %s read from DB", rig), "database")
	}
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s", query), "database")
	}

	rows, err := db.Queryx(query, rig)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	roles := make(ChannelRoles)
	for rows.Next() {
		result := channelRoleEntry{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		channel := ChannelConfig{Name: result.ChannelName, Threshold: result.Threshold}
		if result.Cutoff.Valid {
			cutoff := result.Cutoff.Float64
			channel.Cutoff = &cutoff
		}
		if result.Distance.Valid {
			distance := result.Distance.Float64
			channel.Distance = &distance
		}
		roles[result.Role] = channel
	}
	return roles, rows.Err()
}

// Roles returns the role names in sorted order.
func (r ChannelRoles) Roles() []string {
	roles := maps.Keys(r)
	sort.Strings(roles)
	return roles
}

// Apply overrides the configuration channels with the registry roles.
func (r ChannelRoles) Apply(config *Configuration) {
	for _, role := range r.Roles() {
		channel := r[role]
		switch role {
		case "frame_clock":
			config.FrameClock = channel
		case "reward":
			config.Reward = channel
		case "lick":
			config.Lick = channel
		default:
			logger.Error(fmt.Sprintf("ignoring unknown channel role %q", role))
		}
	}
}
