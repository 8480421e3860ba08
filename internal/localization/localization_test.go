package localization_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostpets/client/internal/localization"
)

func TestLocalizer_SelectedLanguage(t *testing.T) {
	l, err := localization.NewLocalizer("es")
	require.NoError(t, err)

	assert.Equal(t, "¡No existen chats!", l.T("chats.none"))
	assert.Equal(t, "Chats", l.T("chats.title"))
}

func TestLocalizer_FallbackToEnglish(t *testing.T) {
	l, err := localization.NewLocalizer("de")
	require.NoError(t, err)

	assert.Equal(t, "There are no chats!", l.T("chats.none"))
}

func TestLocalizer_UnknownKeyReturnsKey(t *testing.T) {
	l, err := localization.NewLocalizer("en")
	require.NoError(t, err)

	assert.Equal(t, "no.such.key", l.T("no.such.key"))
}

func TestLocalizer_GetString(t *testing.T) {
	l, err := localization.NewLocalizer("en")
	require.NoError(t, err)

	assert.Equal(t, "¡Se ha perdido la conexión con el servidor! ¡Reconectando!",
		l.GetString("es", "chats.connection_lost"))
	assert.Equal(t, "Connection to the server has been lost! Reconnecting!",
		l.GetString("en", "chats.connection_lost"))
}
