package mongo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectionInfo locates the database holding import records, import
// item logs and the denial audit log.
type ConnectionInfo struct {
	Scheme     string
	User       string
	Password   string
	Host       string
	Port       string
	DB         string
	AuthSource string
}

type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// URI renders info as a connection string. Credentials are escaped.
func (info ConnectionInfo) URI() string {
	u := url.URL{Scheme: info.Scheme, Host: info.Host, Path: "/" + info.DB}
	if u.Scheme == "" {
		u.Scheme = "mongodb"
	}
	if info.Port != "" && u.Scheme != "mongodb+srv" {
		u.Host += ":" + info.Port
	}
	if info.User != "" {
		if info.Password != "" {
			u.User = url.UserPassword(info.User, info.Password)
		} else {
			u.User = url.User(info.User)
		}
	}
	if info.AuthSource != "" {
		u.RawQuery = url.Values{"authSource": {info.AuthSource}}.Encode()
	}
	return u.String()
}

func NewConnection(ctx context.Context, info ConnectionInfo) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(info.URI()).
		SetAppName("debtster_routes").
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping %s: %w", info.Host, err)
	}

	return &Mongo{Client: client, Database: client.Database(info.DB)}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	if m.Client != nil {
		return m.Client.Disconnect(ctx)
	}
	return nil
}
