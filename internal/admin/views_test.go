// internal/admin/views_test.go
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/models"
)

type fakeNotifier struct {
	apps []models.Application
	err  error
}

func (f *fakeNotifier) StatusChanged(ctx context.Context, app models.Application) error {
	if f.err != nil {
		return f.err
	}
	f.apps = append(f.apps, app)
	return nil
}

type fakeSearcher struct {
	query []byte
	body  []byte
	err   error
}

func (f *fakeSearcher) Search(ctx context.Context, index string, query []byte) ([]byte, error) {
	f.query = query
	return f.body, f.err
}

func appColumns() []string {
	return []string{
		"id", "user_id", "loan_id", "phone_number", "full_name",
		"medical_score", "asset_score", "behavior_score", "composite_score",
		"status", "created_at", "updated_at",
	}
}

func appRow(rows *sqlmock.Rows, id, status string) *sqlmock.Rows {
	return rows.AddRow(id, "user-1", "loan-1", "254700000001", "Jane Wambui",
		73.0, 70.0, 53.0, 65, status, "2026-01-15T10:00:00Z", "2026-01-15T10:00:00Z")
}

func newTestViews(t *testing.T, searcher Searcher, notifier Notifier) (*Views, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewViews(db, searcher, notifier, "applications", logger.NewTestLogger(t)), mock
}

func TestListApplicationsWithStatusFilter(t *testing.T) {
	v, mock := newTestViews(t, nil, nil)

	rows := appRow(sqlmock.NewRows(appColumns()), "app-1", models.StatusPending)
	mock.ExpectQuery(`SELECT .+ FROM applications WHERE status = \$1 ORDER BY created_at DESC`).
		WithArgs(models.StatusPending).
		WillReturnRows(rows)

	apps, err := v.ListApplications(context.Background(), models.StatusPending)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "app-1", apps[0].ID)
	assert.Equal(t, 65, apps[0].CompositeScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListApplicationsNoFilter(t *testing.T) {
	v, mock := newTestViews(t, nil, nil)

	rows := sqlmock.NewRows(appColumns())
	appRow(rows, "app-1", models.StatusPending)
	appRow(rows, "app-2", models.StatusApproved)
	mock.ExpectQuery(`SELECT .+ FROM applications ORDER BY created_at DESC`).
		WillReturnRows(rows)

	apps, err := v.ListApplications(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, apps, 2)
}

func TestGetApplicationAssemblesAnalyses(t *testing.T) {
	v, mock := newTestViews(t, nil, nil)

	mock.ExpectQuery(`SELECT .+ FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(appRow(sqlmock.NewRows(appColumns()), "app-1", models.StatusPending))

	for _, table := range analysisTables {
		rows := sqlmock.NewRows([]string{"payload", "created_at"})
		if table == models.CategoryBank {
			rows.AddRow([]byte(`{"credit_score":60}`), "2026-01-15T10:00:00Z")
		}
		mock.ExpectQuery(`SELECT payload, created_at FROM ` + string(table)).
			WithArgs("app-1").
			WillReturnRows(rows)
	}

	detail, err := v.GetApplication(context.Background(), "app-1")
	require.NoError(t, err)
	require.NotNil(t, detail)
	require.Len(t, detail.Analyses, 1)
	assert.Equal(t, models.CategoryBank, detail.Analyses[0].Category)
	assert.JSONEq(t, `{"credit_score":60}`, string(detail.Analyses[0].Payload))
}

func TestGetApplicationNotFound(t *testing.T) {
	v, mock := newTestViews(t, nil, nil)

	mock.ExpectQuery(`SELECT .+ FROM applications WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(appColumns()))

	detail, err := v.GetApplication(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestUpdateStatusNotifies(t *testing.T) {
	notifier := &fakeNotifier{}
	v, mock := newTestViews(t, nil, notifier)

	mock.ExpectQuery(`UPDATE applications SET status = \$1`).
		WithArgs(models.StatusApproved, sqlmock.AnyArg(), "app-1").
		WillReturnRows(appRow(sqlmock.NewRows(appColumns()), "app-1", models.StatusApproved))

	app, err := v.UpdateStatus(context.Background(), "app-1", models.StatusApproved)
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, models.StatusApproved, app.Status)
	require.Len(t, notifier.apps, 1)
	assert.Equal(t, "app-1", notifier.apps[0].ID)
}

func TestUpdateStatusSwallowsNotifierFailure(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("ses unavailable")}
	v, mock := newTestViews(t, nil, notifier)

	mock.ExpectQuery(`UPDATE applications SET status = \$1`).
		WithArgs(models.StatusRejected, sqlmock.AnyArg(), "app-2").
		WillReturnRows(appRow(sqlmock.NewRows(appColumns()), "app-2", models.StatusRejected))

	app, err := v.UpdateStatus(context.Background(), "app-2", models.StatusRejected)
	require.NoError(t, err)
	require.NotNil(t, app)
}

func TestSearchApplicationsBuildsMultiMatch(t *testing.T) {
	searcher := &fakeSearcher{body: []byte(`{"hits":{"total":{"value":1}}}`)}
	v, _ := newTestViews(t, searcher, nil)

	body, err := v.SearchApplications(context.Background(), "wambui")
	require.NoError(t, err)
	assert.JSONEq(t, `{"hits":{"total":{"value":1}}}`, string(body))

	var q map[string]interface{}
	require.NoError(t, json.Unmarshal(searcher.query, &q))
	mm := q["query"].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "wambui", mm["query"])
}
