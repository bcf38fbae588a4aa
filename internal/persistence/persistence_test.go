package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/markusressel/psu2go/internal/data"
	"github.com/stretchr/testify/assert"
	bolt "go.etcd.io/bbolt"
)

func createPersistence(t *testing.T) Persistence {
	p := NewPersistence(filepath.Join(t.TempDir(), "db", "psu2go.db"))
	err := p.Init()
	assert.NoError(t, err)
	return p
}

func TestPersistence_Init_CreatesParentDir(t *testing.T) {
	// GIVEN
	dir := filepath.Join(t.TempDir(), "a", "b")
	p := NewPersistence(filepath.Join(dir, "psu2go.db"))

	// WHEN
	err := p.Init()

	// THEN
	assert.NoError(t, err)
	info, statErr := os.Stat(dir)
	assert.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestPersistence_SaveAndLoadSetpoint(t *testing.T) {
	// GIVEN
	p := createPersistence(t)
	expected := data.Setpoint{Voltage: 12, Current: 0.5}

	// WHEN
	err := p.SaveSetpoint("/dev/ttyUSB0", expected)
	result, loadErr := p.LoadSetpoint("/dev/ttyUSB0")

	// THEN
	assert.NoError(t, err)
	assert.NoError(t, loadErr)
	assert.Equal(t, expected, result)
}

func TestPersistence_LoadSetpoint_Missing(t *testing.T) {
	// GIVEN
	p := createPersistence(t)
	_ = p.SaveSetpoint("/dev/ttyUSB0", data.Setpoint{Voltage: 1, Current: 1})

	// WHEN
	_, err := p.LoadSetpoint("/dev/ttyUSB1")

	// THEN
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPersistence_DeleteSetpoint(t *testing.T) {
	// GIVEN
	p := createPersistence(t)
	_ = p.SaveSetpoint("/dev/ttyUSB0", data.Setpoint{Voltage: 5, Current: 1})

	// WHEN
	err := p.DeleteSetpoint("/dev/ttyUSB0")

	// THEN
	assert.NoError(t, err)
	_, loadErr := p.LoadSetpoint("/dev/ttyUSB0")
	assert.ErrorIs(t, loadErr, os.ErrNotExist)
}

func TestPersistence_LoadSetpoint_CorruptDataIsDeleted(t *testing.T) {
	// GIVEN
	dbPath := filepath.Join(t.TempDir(), "psu2go.db")
	p := NewPersistence(dbPath)
	db, err := bolt.Open(dbPath, 0600, nil)
	assert.NoError(t, err)
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketSetpoints))
		if err != nil {
			return err
		}
		return b.Put([]byte("/dev/ttyUSB0"), []byte("{not json"))
	})
	assert.NoError(t, err)
	_ = db.Close()

	// WHEN
	_, loadErr := p.LoadSetpoint("/dev/ttyUSB0")

	// THEN
	assert.ErrorIs(t, loadErr, os.ErrNotExist)
	_, secondErr := p.LoadSetpoint("/dev/ttyUSB0")
	assert.ErrorIs(t, secondErr, os.ErrNotExist)
}

func TestPersistence_LastPort(t *testing.T) {
	// GIVEN
	p := createPersistence(t)
	_, missingErr := p.LoadLastPort()

	// WHEN
	err := p.SaveLastPort("/dev/ttyACM0")
	port, loadErr := p.LoadLastPort()

	// THEN
	assert.ErrorIs(t, missingErr, os.ErrNotExist)
	assert.NoError(t, err)
	assert.NoError(t, loadErr)
	assert.Equal(t, "/dev/ttyACM0", port)
}
