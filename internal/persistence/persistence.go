package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/markusressel/psu2go/internal/data"
	"github.com/markusressel/psu2go/internal/ui"
	bolt "go.etcd.io/bbolt"
	"os"
	"path/filepath"
	"time"
)

const (
	BucketSetpoints = "setpoints"
	BucketSession   = "session"

	keyLastPort = "lastPort"
)

type Persistence interface {
	Init() error

	LoadSetpoint(port string) (data.Setpoint, error)
	SaveSetpoint(port string, setpoint data.Setpoint) error
	DeleteSetpoint(port string) error

	LoadLastPort() (string, error)
	SaveLastPort(port string) error
}

type persistence struct {
	dbPath string
}

func NewPersistence(dbPath string) Persistence {
	p := &persistence{
		dbPath: dbPath,
	}
	return p
}

func (p persistence) Init() (err error) {
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) openPersistence() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (p persistence) put(bucket string, key string, value []byte) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		return b.Put([]byte(key), value)
	})
}

// get returns os.ErrNotExist if there is no value for the given key
func (p persistence) get(bucket string, key string) ([]byte, error) {
	db, err := p.openPersistence()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	var result []byte
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return os.ErrNotExist
		}
		v := b.Get([]byte(key))
		if v == nil {
			return os.ErrNotExist
		}
		// v is only valid during the transaction
		result = append([]byte{}, v...)
		return nil
	})
	return result, err
}

func (p persistence) delete(bucket string, key string) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// SaveSetpoint stores the last applied setpoint of the device on the given port
func (p persistence) SaveSetpoint(port string, setpoint data.Setpoint) error {
	value, err := json.Marshal(setpoint)
	if err != nil {
		return err
	}
	return p.put(BucketSetpoints, port, value)
}

// LoadSetpoint loads the last applied setpoint of the device on the given port
func (p persistence) LoadSetpoint(port string) (data.Setpoint, error) {
	value, err := p.get(BucketSetpoints, port)
	if err != nil {
		return data.Setpoint{}, err
	}

	var setpoint data.Setpoint
	err = json.Unmarshal(value, &setpoint)
	if err != nil {
		// if we cannot read the saved data, delete it
		ui.Warning("Unable to unmarshal saved setpoint for %s: %v", port, err)
		if err := p.delete(BucketSetpoints, port); err != nil {
			ui.Error("Unable to delete corrupt data key %s: %v", port, err)
		}
		return data.Setpoint{}, os.ErrNotExist
	}
	return setpoint, nil
}

func (p persistence) DeleteSetpoint(port string) error {
	return p.delete(BucketSetpoints, port)
}

// LoadLastPort returns the port of the last successful connection
func (p persistence) LoadLastPort() (string, error) {
	value, err := p.get(BucketSession, keyLastPort)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (p persistence) SaveLastPort(port string) error {
	return p.put(BucketSession, keyLastPort, []byte(port))
}
