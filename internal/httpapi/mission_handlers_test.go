package httpapi

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/JasonCodez/kryptyk-labs/internal/mission"
)

func TestMissionStatusRequiresMissionID(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/api/missions/status", nil, api.authHeader())
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMissionStatusUnknownMission(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/api/missions/status",
		url.Values{"mission_id": {"made-up-mission"}}, api.authHeader())
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMissionStatusNotYetCompleted(t *testing.T) {
	api := newTestAPI(t)

	api.mock.ExpectQuery("select user_id, mission_id, success").
		WithArgs(consoleUID, mission.StarterProtocolID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "mission_id", "success", "completed_at"}))

	resp := api.get("/api/missions/status",
		url.Values{"mission_id": {mission.StarterProtocolID}}, api.authHeader())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	require.Equal(t, false, body["completed"])
	require.NoError(t, api.mock.ExpectationsWereMet())
}

func TestStarterProtocolServesBeacon(t *testing.T) {
	api := newTestAPI(t)

	api.mock.ExpectQuery("select id, email, coalesce").
		WithArgs(consoleUID).
		WillReturnRows(consoleUserRows(""))

	resp := api.get("/api/missions/starter-protocol", nil, api.authHeader())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	require.Regexp(t, `^SIG-[0-9A-F]{10}$`, body["beacon"])
	require.NoError(t, api.mock.ExpectationsWereMet())
}

func TestInitiate001PacketServed(t *testing.T) {
	api := newTestAPI(t)

	api.mock.ExpectQuery("select id, email, coalesce").
		WithArgs(consoleUID).
		WillReturnRows(consoleUserRows(""))

	resp := api.get("/api/missions/initiate-001-packet", nil, api.authHeader())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	pkt, ok := body["packet"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "BG/1.0", pkt["proto"])
	require.Regexp(t, `^\d{6}$`, pkt["nonce"])
	require.NoError(t, api.mock.ExpectationsWereMet())
}

func TestMissionSubmitWrongAnswerIsStillOK(t *testing.T) {
	api := newTestAPI(t)

	api.mock.ExpectQuery("select user_id, mission_id, success").
		WithArgs(consoleUID, mission.StarterProtocolID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "mission_id", "success", "completed_at"}))
	api.mock.ExpectQuery("select id, email, coalesce").
		WithArgs(consoleUID).
		WillReturnRows(consoleUserRows(""))
	api.mock.ExpectExec("insert into asset_access_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	resp := api.post("/api/missions/submit", map[string]any{
		"mission_id": mission.StarterProtocolID,
		"answer":     "SIG-0000000000",
	}, api.authHeader())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	require.Equal(t, false, body["correct"])
	require.NotEmpty(t, body["message"])
	require.NoError(t, api.mock.ExpectationsWereMet())
}

func TestMissionSubmitUnknownMission(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/missions/submit", map[string]any{
		"mission_id": "made-up-mission",
		"answer":     "whatever",
	}, api.authHeader())
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMissionLogRecordsBriefingView(t *testing.T) {
	api := newTestAPI(t)

	api.mock.ExpectExec("insert into asset_access_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	resp := api.post("/api/missions/log", map[string]any{
		"event_type": "BRIEFING_VIEW",
		"mission_id": mission.StarterProtocolID,
	}, api.authHeader())
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, api.mock.ExpectationsWereMet())
}

func TestMissionLogRejectsArbitraryEventTypes(t *testing.T) {
	api := newTestAPI(t)

	// MISSION_COMPLETE is server-written only; the console cannot fake it.
	resp := api.post("/api/missions/log", map[string]any{
		"event_type": "MISSION_COMPLETE",
		"mission_id": mission.StarterProtocolID,
	}, api.authHeader())
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMissionProgressRecomputesClearance(t *testing.T) {
	api := newTestAPI(t)

	api.mock.ExpectQuery(`select count\(\*\) from mission_completions`).
		WithArgs(consoleUID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	api.mock.ExpectExec("update users").
		WithArgs("OPERATIVE-2", 10, consoleUID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp := api.get("/api/missions/progress", nil, api.authHeader())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	require.Equal(t, float64(12), body["successful_missions"])
	require.Equal(t, "OPERATIVE-2", body["clearance_level"])
	require.Equal(t, "ARCHIVIST", body["next_tier"])
	require.Equal(t, float64(18), body["remaining"])
	require.NoError(t, api.mock.ExpectationsWereMet())
}
