package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore keeps blobs in a MongoDB GridFS bucket.  The blob key is
// used as the GridFS filename and the content type is kept in the file
// metadata.
type GridFSStore struct {
	client *mongo.Client
	bucket *gridfs.Bucket
}

// NewGridFSStore connects to uri and opens the default "fs" bucket of
// database dbName.
func NewGridFSStore(ctx context.Context, uri, dbName string) (*GridFSStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	bucket, err := gridfs.NewBucket(client.Database(dbName))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &GridFSStore{client: client, bucket: bucket}, nil
}

// Close disconnects the underlying client.
func (s *GridFSStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *GridFSStore) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	k, err := cleanKey(key)
	if err != nil {
		return 0, err
	}
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "content_type", Value: contentType}})
	stream, err := s.bucket.OpenUploadStream(k, opts)
	if err != nil {
		return 0, err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = stream.SetWriteDeadline(dl)
	}
	n, err := io.Copy(stream, r)
	if err != nil {
		_ = stream.Abort()
		return 0, err
	}
	if err := stream.Close(); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *GridFSStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, "", err
	}
	stream, err := s.bucket.OpenDownloadStreamByName(k)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(dl)
	}
	ct := "application/octet-stream"
	if f := stream.GetFile(); f != nil && f.Metadata != nil {
		if v, ok := f.Metadata.Lookup("content_type").StringValueOK(); ok && v != "" {
			ct = v
		}
	}
	return stream, ct, nil
}

func (s *GridFSStore) Delete(ctx context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	var file struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err = s.bucket.GetFilesCollection().FindOne(ctx, bson.M{"filename": k}).Decode(&file)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.bucket.Delete(file.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return err
	}
	return nil
}
