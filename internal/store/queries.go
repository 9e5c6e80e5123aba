package store

const queryGetSession = `
	SELECT access_token, refresh_token, access_expires_ms, refresh_expires_ms
	FROM sessions
	WHERE account = $1`

const queryUpsertSession = `
	INSERT INTO sessions (
		account, access_token, refresh_token, access_expires_ms, refresh_expires_ms
	) VALUES (
		@account, @access_token, @refresh_token, @access_expires_ms, @refresh_expires_ms
	)
	ON CONFLICT (account) DO UPDATE SET
		access_token       = EXCLUDED.access_token,
		refresh_token      = EXCLUDED.refresh_token,
		access_expires_ms  = EXCLUDED.access_expires_ms,
		refresh_expires_ms = EXCLUDED.refresh_expires_ms,
		updated_at         = now()`

const queryDeleteSession = `DELETE FROM sessions WHERE account = $1`

const queryGetCursor = `SELECT position FROM watch_cursors WHERE name = $1`

const queryUpsertCursor = `
	INSERT INTO watch_cursors (name, position)
	VALUES (@name, @position)
	ON CONFLICT (name) DO UPDATE SET
		position   = EXCLUDED.position,
		updated_at = now()`

const queryInsertSellerEvents = `
	INSERT INTO seller_events (since, polled_at, payload)
	VALUES (@since, @polled_at, @payload)
	RETURNING id, received_at`

const queryMarkSellerEventsNotified = `
	UPDATE seller_events SET notified = true WHERE id = $1`

const queryListSellerEvents = `
	SELECT id, since, polled_at, payload, notified, received_at
	FROM seller_events
	ORDER BY received_at DESC
	LIMIT $1`
