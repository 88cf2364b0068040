package db

import "context"

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, fullname, email, password, created_at
FROM users
WHERE lower(email) = lower($1)
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Fullname, &u.Email, &u.Password, &u.CreatedAt)
	return u, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (fullname, email, password)
VALUES ($1, $2, $3)
RETURNING id, fullname, email, password, created_at
`

type CreateUserParams struct {
	Fullname string
	Email    string
	Password string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Fullname, arg.Email, arg.Password)
	var u User
	err := row.Scan(&u.ID, &u.Fullname, &u.Email, &u.Password, &u.CreatedAt)
	return u, err
}
