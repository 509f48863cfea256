package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"github.com/boltdb/bolt"
	"github.com/pkppln/depositor/models"
	"sort"
)

const DEPOSIT_BUCKET = "deposits"
const OBJECT_BUCKET = "deposit_objects"
const TENANT_BUCKET = "tenant_state"

// BoltStore is the repository the deposit engine reads and writes.
// It's a bolt database: a single-file key-value store, with one
// bucket each for deposits, deposit objects and tenant state. Records
// are gob-encoded. The engine never issues storage queries itself;
// everything goes through the filtered reads and writes here.
type BoltStore struct {
	db       *bolt.DB
	filePath string
}

// NewBoltStore opens a bolt database, creating the DB file if it
// doesn't already exist.
func NewBoltStore(filePath string) (store *BoltStore, err error) {
	db, err := bolt.Open(filePath, 0644, nil)
	if err == nil {
		store = &BoltStore{
			db:       db,
			filePath: filePath,
		}
		err = store.initBuckets()
	}
	return store, err
}

func (store *BoltStore) initBuckets() error {
	return store.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{DEPOSIT_BUCKET, OBJECT_BUCKET, TENANT_BUCKET} {
			_, err := tx.CreateBucketIfNotExists([]byte(name))
			if err != nil {
				return fmt.Errorf("Error creating bucket %s: %s", name, err)
			}
		}
		return nil
	})
}

// FilePath returns the path to the bolt DB file.
func (store *BoltStore) FilePath() string {
	return store.filePath
}

// Close closes the bolt database.
func (store *BoltStore) Close() {
	store.db.Close()
}

// SaveDeposit writes a deposit, assigning an id from the bucket
// sequence if the record is new.
func (store *BoltStore) SaveDeposit(deposit *models.Deposit) error {
	return store.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(DEPOSIT_BUCKET))
		if deposit.Id == 0 {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			deposit.Id = int(seq)
		}
		data, err := encode(deposit)
		if err != nil {
			return err
		}
		return bucket.Put(itob(deposit.Id), data)
	})
}

// GetDeposit returns the deposit with the given id, or nil and no
// error if there's no such deposit.
func (store *BoltStore) GetDeposit(id int) (*models.Deposit, error) {
	var deposit *models.Deposit
	err := store.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(DEPOSIT_BUCKET)).Get(itob(id))
		if len(value) == 0 {
			return nil
		}
		deposit = &models.Deposit{}
		return decode(value, deposit)
	})
	if err != nil {
		return nil, err
	}
	return deposit, nil
}

// FindDepositByUUID returns the deposit with the given UUID, or nil.
func (store *BoltStore) FindDepositByUUID(uuid string) (*models.Deposit, error) {
	deposits, err := store.findDeposits(func(d *models.Deposit) bool {
		return d.UUID == uuid
	})
	if err != nil || len(deposits) == 0 {
		return nil, err
	}
	return deposits[0], nil
}

// DepositsForTenant returns the tenant's deposits that satisfy
// matches (nil matches everything). Deposits whose last operation
// succeeded sort ahead of deposits carrying errors, so healthy work
// isn't starved behind persistent failures; within each group the
// order is by id.
func (store *BoltStore) DepositsForTenant(tenantUUID string, matches func(*models.Deposit) bool) ([]*models.Deposit, error) {
	deposits, err := store.findDeposits(func(d *models.Deposit) bool {
		if d.TenantUUID != tenantUUID {
			return false
		}
		return matches == nil || matches(d)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(deposits, func(i, j int) bool {
		iErr := deposits[i].ExportError != ""
		jErr := deposits[j].ExportError != ""
		if iErr != jErr {
			return !iErr
		}
		return deposits[i].Id < deposits[j].Id
	})
	return deposits, nil
}

// AllDeposits returns every deposit in the store, in key order.
func (store *BoltStore) AllDeposits() ([]*models.Deposit, error) {
	return store.findDeposits(nil)
}

// DeleteDeposit removes the deposit with the given id.
func (store *BoltStore) DeleteDeposit(id int) error {
	return store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(DEPOSIT_BUCKET)).Delete(itob(id))
	})
}

func (store *BoltStore) findDeposits(matches func(*models.Deposit) bool) ([]*models.Deposit, error) {
	deposits := make([]*models.Deposit, 0)
	err := store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(DEPOSIT_BUCKET)).ForEach(func(k, v []byte) error {
			deposit := &models.Deposit{}
			err := decode(v, deposit)
			if err != nil {
				return err
			}
			if matches == nil || matches(deposit) {
				deposits = append(deposits, deposit)
			}
			return nil
		})
	})
	return deposits, err
}

// SaveDepositObject writes a deposit object, assigning an id from
// the bucket sequence if the record is new.
func (store *BoltStore) SaveDepositObject(obj *models.DepositObject) error {
	return store.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(OBJECT_BUCKET))
		if obj.Id == 0 {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			obj.Id = int(seq)
		}
		data, err := encode(obj)
		if err != nil {
			return err
		}
		return bucket.Put(itob(obj.Id), data)
	})
}

// ObjectsForTenant returns the tenant's deposit objects that satisfy
// matches (nil matches everything), in id order.
func (store *BoltStore) ObjectsForTenant(tenantUUID string, matches func(*models.DepositObject) bool) ([]*models.DepositObject, error) {
	return store.findObjects(func(obj *models.DepositObject) bool {
		if obj.TenantUUID != tenantUUID {
			return false
		}
		return matches == nil || matches(obj)
	})
}

// ObjectsForDeposit returns the members of one deposit, in id order.
func (store *BoltStore) ObjectsForDeposit(depositId int) ([]*models.DepositObject, error) {
	return store.findObjects(func(obj *models.DepositObject) bool {
		return obj.DepositId == depositId
	})
}

// AllDepositObjects returns every deposit object in the store.
func (store *BoltStore) AllDepositObjects() ([]*models.DepositObject, error) {
	return store.findObjects(nil)
}

// DeleteDepositObject removes the object with the given id.
func (store *BoltStore) DeleteDepositObject(id int) error {
	return store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(OBJECT_BUCKET)).Delete(itob(id))
	})
}

func (store *BoltStore) findObjects(matches func(*models.DepositObject) bool) ([]*models.DepositObject, error) {
	objects := make([]*models.DepositObject, 0)
	err := store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(OBJECT_BUCKET)).ForEach(func(k, v []byte) error {
			obj := &models.DepositObject{}
			err := decode(v, obj)
			if err != nil {
				return err
			}
			if matches == nil || matches(obj) {
				objects = append(objects, obj)
			}
			return nil
		})
	})
	return objects, err
}

// SaveTenantState writes a tenant's persisted state, keyed by
// tenant UUID.
func (store *BoltStore) SaveTenantState(state *models.TenantState) error {
	return store.db.Update(func(tx *bolt.Tx) error {
		data, err := encode(state)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(TENANT_BUCKET)).Put([]byte(state.TenantUUID), data)
	})
}

// GetTenantState returns the persisted state for a tenant, or nil
// and no error if we've never seen the tenant before.
func (store *BoltStore) GetTenantState(tenantUUID string) (*models.TenantState, error) {
	var state *models.TenantState
	err := store.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(TENANT_BUCKET)).Get([]byte(tenantUUID))
		if len(value) == 0 {
			return nil
		}
		state = &models.TenantState{}
		return decode(value, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func encode(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(value)
	return buf.Bytes(), err
}

func decode(data []byte, value interface{}) error {
	return gob.NewDecoder(bytes.NewBuffer(data)).Decode(value)
}

func itob(id int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}
