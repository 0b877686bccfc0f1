package feed

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type binarySerializer interface {
	binaryPut(serializedData []byte) error
	binaryLength() int
	binaryGet(serializedData []byte) error
}

func getTestFeed() *Feed {
	topic, _ := NewTopic("world news report, every hour", nil)
	return &Feed{
		Topic: topic,
		User:  common.HexToAddress("0x876A8936A7Cd0b79Ef0735AD0896c1AFe278781c"),
	}
}

func compareByteSliceToExpectedHex(t *testing.T, variableName string, actualValue []byte, expectedHex string) {
	if hexutil.Encode(actualValue) != expectedHex {
		t.Fatalf("%s: Expected %s to be %s, got %s", t.Name(), variableName, expectedHex, hexutil.Encode(actualValue))
	}
}

func testBinarySerializerRecovery(t *testing.T, bin binarySerializer, expectedHex string) {
	name := reflect.TypeOf(bin).Elem().Name()
	serialized := make([]byte, bin.binaryLength())
	if err := bin.binaryPut(serialized); err != nil {
		t.Fatalf("%s.binaryPut error when trying to serialize structure: %s", name, err)
	}

	compareByteSliceToExpectedHex(t, name, serialized, expectedHex)

	recovered := reflect.New(reflect.TypeOf(bin).Elem()).Interface().(binarySerializer)
	if err := recovered.binaryGet(serialized); err != nil {
		t.Fatalf("%s.binaryGet error when trying to deserialize structure: %s", name, err)
	}

	if !reflect.DeepEqual(bin, recovered) {
		t.Fatalf("Expected that the recovered %s equals the marshalled %s", name, name)
	}

	serializedWrongLength := make([]byte, 1)
	copy(serializedWrongLength[:], serialized)
	if err := recovered.binaryGet(serializedWrongLength); err == nil {
		t.Fatalf("Expected %s.binaryGet to fail since data is too small", name)
	}
}

func testBinarySerializerLengthCheck(t *testing.T, bin binarySerializer) {
	name := reflect.TypeOf(bin).Elem().Name()
	// make a slice that is too small to contain the metadata
	serialized := make([]byte, bin.binaryLength()-1)

	if err := bin.binaryPut(serialized); err == nil {
		t.Fatalf("Expected %s.binaryPut to fail, since target slice is too small", name)
	}
}

func areEqualJSON(s1, s2 string) (bool, error) {
	var o1, o2 interface{}
	if err := json.Unmarshal([]byte(s1), &o1); err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s2), &o2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(o1, o2), nil
}

func TestFeedSerializer(t *testing.T) {
	testBinarySerializerRecovery(t, getTestFeed(), "0x776f726c64206e657773207265706f72742c20657665727920686f7572000000876a8936a7cd0b79ef0735ad0896c1afe278781c")
}

func TestFeedJSON(t *testing.T) {
	f := getTestFeed()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	expected := `{"topic":"0x776f726c64206e657773207265706f72742c20657665727920686f7572000000","user":"0x876a8936a7cd0b79ef0735ad0896c1afe278781c"}`
	equal, err := areEqualJSON(expected, string(data))
	if err != nil {
		t.Fatal(err)
	}
	if !equal {
		t.Fatalf("Expected JSON %s, got %s", expected, data)
	}
	var recovered Feed
	if err := json.Unmarshal(data, &recovered); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(recovered.Topic[:], f.Topic[:]) || recovered.User != f.User {
		t.Fatal("Expected recovered feed to equal the original one")
	}
}
