package internal

import (
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/m-mizutani/logsherpa/internal/adaptor"
	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const s3DownloadBufferSize = 2 * 1024 * 1024 // 2MB

// NewS3Client is swappable for testing
var NewS3Client adaptor.S3ClientFactory = adaptor.NewS3Client

// DownloadS3Object downloads a remote log object to a temporary local
// file and returns the file path. The caller owns the file.
func DownloadS3Object(obj models.S3Object) (string, error) {
	client := NewS3Client(obj.Region)
	input := &s3.GetObjectInput{
		Bucket: &obj.Bucket,
		Key:    &obj.Key,
	}

	resp, err := client.GetObject(input)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return "", models.NewNotFoundError(obj.Path())
		}
		return "", errors.Wrapf(err, "Fail to download a log object: %s", obj.Path())
	}
	defer resp.Body.Close()

	fpath := filepath.Join(os.TempDir(), "logsherpa_"+uuid.New().String()+filepath.Ext(obj.Key))
	fd, err := os.Create(fpath)
	if err != nil {
		return "", errors.Wrap(err, "Fail to create a temp log file")
	}
	defer fd.Close()

	buf := make([]byte, s3DownloadBufferSize)
	readBytes, writeBytes := 0, 0

	for {
		r, rErr := resp.Body.Read(buf)
		readBytes += r

		if r > 0 {
			w, wErr := fd.Write(buf[:r])
			if wErr != nil {
				return "", errors.Wrap(wErr, "Fail to write a temp log file")
			}
			writeBytes += w
		}

		if rErr == io.EOF {
			break
		} else if rErr != nil {
			return "", errors.Wrapf(rErr, "Fail to read a log object from S3: %s", obj.Path())
		}
	}

	Logger.WithFields(logrus.Fields{
		"write": writeBytes, "read": readBytes,
		"fpath": fpath, "srckey": obj.Key,
	}).Debug("Downloaded S3 object")

	return fpath, nil
}
