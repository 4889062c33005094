package paqalign_test

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
)

const (
	recordingQuery = "SELECT SessionID, PaqPath, COALESCE(BehaviorPath, '') AS BehaviorPath, " +
		"COALESCE(FluPath, '') AS FluPath, Rig, ImagingRate FROM Recordings WHERE SessionID = ?"
	tseriesQuery = "SELECT Block, Frames FROM TseriesLengths WHERE SessionID = ? ORDER BY Block"
	rolesQuery   = "SELECT Role, ChannelName, Threshold, Cutoff, Distance FROM ChannelRoles WHERE Rig = ?"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func TestGetRecordingFromDB(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(recordingQuery)).
		WithArgs("m1-s3").
		WillReturnRows(sqlmock.NewRows([]string{"SessionID", "PaqPath", "BehaviorPath", "FluPath", "Rig", "ImagingRate"}).
			AddRow("m1-s3", "/data/m1/s3.paq", "/data/m1/s3.csv", "", "rig2", 30.0))
	mock.ExpectQuery(regexp.QuoteMeta(tseriesQuery)).
		WithArgs("m1-s3").
		WillReturnRows(sqlmock.NewRows([]string{"Block", "Frames"}).
			AddRow(0, 2700).
			AddRow(1, 5400))

	recording, err := paqalign.GetRecordingFromDB(db, "m1-s3")
	require.NoError(t, err)
	assert.Equal(t, &paqalign.Recording{
		SessionID:    "m1-s3",
		PaqPath:      "/data/m1/s3.paq",
		BehaviorPath: "/data/m1/s3.csv",
		Rig:          "rig2",
		ImagingRate:  30,
		TseriesLens:  []int{2700, 5400},
	}, recording)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecordingFromDBNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(recordingQuery)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"SessionID", "PaqPath", "BehaviorPath", "FluPath", "Rig", "ImagingRate"}))

	_, err := paqalign.GetRecordingFromDB(db, "missing")
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetChannelRolesFromDB(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(rolesQuery)).
		WithArgs("rig2").
		WillReturnRows(sqlmock.NewRows([]string{"Role", "ChannelName", "Threshold", "Cutoff", "Distance"}).
			AddRow("frame_clock", "2p_frame", 1.0, nil, nil).
			AddRow("reward", "reward_valve", 1.0, 4.0, nil).
			AddRow("lick", "lick_sensor", 4.9, nil, 160.0).
			AddRow("camera", "cam_trigger", 2.0, nil, nil))

	roles, err := paqalign.GetChannelRolesFromDB(db, "rig2")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []string{"camera", "frame_clock", "lick", "reward"}, roles.Roles())
	assert.Nil(t, roles["frame_clock"].Cutoff)
	require.NotNil(t, roles["reward"].Cutoff)
	assert.Equal(t, 4.0, *roles["reward"].Cutoff)
	require.NotNil(t, roles["lick"].Distance)
	assert.Equal(t, 160.0, *roles["lick"].Distance)

	config := validConfiguration()
	roles.Apply(&config)
	assert.Equal(t, "2p_frame", config.FrameClock.Name)
	assert.Equal(t, "reward_valve", config.Reward.Name)
	assert.Equal(t, "lick_sensor", config.Lick.Name)
	assert.Equal(t, 4.9, config.Lick.Threshold)
}

func TestGetChannelRolesFromDBQueryError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(rolesQuery)).
		WithArgs("rig9").
		WillReturnError(assert.AnError)

	_, err := paqalign.GetChannelRolesFromDB(db, "rig9")
	assert.ErrorIs(t, err, assert.AnError)
}
