package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestStoreVerifyCredentials(t *testing.T) {
	t.Run("success verdict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT public\.fn_login_usuario`).
			WithArgs("super_admin", "ClaveNueva1").
			WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow([]byte(
				`{"ok":true,"user":{"id_usuario":7,"nombre_usuario":"super_admin","roles":["admin"],"sucursales":["centro"]}}`,
			)))

		store := NewStore(db)
		outcome, err := store.VerifyCredentials(context.Background(), "super_admin", "ClaveNueva1")
		require.NoError(t, err)
		require.True(t, outcome.OK)
		require.NotNil(t, outcome.User)
		require.Equal(t, int64(7), outcome.User.ID)
		require.Equal(t, []string{"admin"}, outcome.User.Roles)
		require.Equal(t, []string{"centro"}, outcome.User.Branches)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejection verdict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT public\.fn_login_usuario`).
			WithArgs("super_admin", "wrong").
			WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow([]byte(
				`{"ok":false,"message":"Credenciales inválidas"}`,
			)))

		store := NewStore(db)
		outcome, err := store.VerifyCredentials(context.Background(), "super_admin", "wrong")
		require.NoError(t, err)
		require.False(t, outcome.OK)
		require.Equal(t, "Credenciales inválidas", outcome.Message)
		require.Nil(t, outcome.User)
	})

	t.Run("query failure names the function for the hint", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT public\.fn_login_usuario`).
			WillReturnError(errors.New(`ERROR: function public.fn_login_usuario(text, text) does not exist (SQLSTATE 42883)`))

		store := NewStore(db)
		_, err = store.VerifyCredentials(context.Background(), "super_admin", "pw")
		require.Error(t, err)
		require.Contains(t, err.Error(), LoginFunction)
	})

	t.Run("null verdict is a plain rejection", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT public\.fn_login_usuario`).
			WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(nil))

		store := NewStore(db)
		outcome, err := store.VerifyCredentials(context.Background(), "ghost", "pw")
		require.NoError(t, err)
		require.False(t, outcome.OK)
	})
}
