package payload

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/scimdash/internal/models"
)

const (
	MsgFillEndpoint = "Fill endpoint details"
	MsgFillUserName = "Fill userName"
	MsgFillPassword = "Fill password"
	MsgFillToken    = "Fill token details"
	MsgFillAuth     = "Please fill all authentication details!"
	MsgCheckOneTest = "Please check at least one test case to proceed!"
)

// FieldMessages maps each validated auth field to its user-facing message
var FieldMessages = map[string]string{
	models.FieldEndpoint: MsgFillEndpoint,
	models.FieldUserName: MsgFillUserName,
	models.FieldPassword: MsgFillPassword,
	models.FieldToken:    MsgFillToken,
	models.FieldMode:     "Select an authentication mode",
}

// operation binds a catalog state name to the key the compliance suite expects
type operation struct {
	stateName string
	key       string
}

// operations is in catalog order; the outbound body lists keys in this order
var operations = []operation{
	{"serviceProviderConfigGet", "GetServiceProviderConfig"},
	{"schemasGet", "GetSchemas"},
	{"resourceTypesGet", "GetResourceTypes"},

	{"userGet", "GetUsers"},
	{"userGetById", "GetUserById"},
	{"userPost", "PostUser"},
	{"userPut", "PutUser"},
	{"userPatch", "PatchUser"},
	{"userDelete", "DeleteUser"},
	{"userSearch", "SearchUser"},

	{"groupGet", "GetGroups"},
	{"groupGetById", "GetGroupById"},
	{"groupPost", "PostGroup"},
	{"groupPut", "PutGroup"},
	{"groupPatch", "PatchGroup"},
	{"groupDelete", "DeleteGroup"},
	{"groupSearch", "SearchGroup"},

	{"meGet", "GetMe"},
	{"mePost", "PostMe"},
	{"mePut", "PutMe"},
	{"mePatch", "PatchMe"},
	{"meDelete", "DeleteMe"},

	{"bulkPost", "PostBulk"},
	{"bulkPut", "PutBulk"},
	{"bulkPatch", "PatchBulk"},
	{"bulkDelete", "DeleteBulk"},

	{"rolesGet", "GetRoles"},
	{"rolesGetById", "GetRoleById"},
	{"rolesPost", "PostRole"},
	{"rolesPut", "PutRole"},
	{"rolesPatch", "PatchRole"},
	{"rolesDelete", "DeleteRole"},
	{"rolesSearch", "SearchRole"},
}

var keyByStateName = func() map[string]string {
	m := make(map[string]string, len(operations))
	for _, op := range operations {
		m[op.stateName] = op.key
	}
	return m
}()

// OperationKeys returns every outbound operation key in catalog order
func OperationKeys() []string {
	keys := make([]string, len(operations))
	for i, op := range operations {
		keys[i] = op.key
	}
	return keys
}

// KeyFor returns the outbound key for a catalog state name
func KeyFor(stateName string) (string, bool) {
	k, ok := keyByStateName[stateName]
	return k, ok
}

// Builder turns the selection tree and committed auth config into a RunRequest
type Builder struct {
	validate *validator.Validate
}

// NewBuilder creates a builder with its own validator instance
func NewBuilder() *Builder {
	return &Builder{validate: NewValidator()}
}

// NewValidator returns a validator that reports fields by their JSON names
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}

// ValidateAuth checks the auth config and returns every failing field at once.
// It returns nil when the config is complete for its mode.
func ValidateAuth(v *validator.Validate, auth models.AuthConfig) models.ValidationErrors {
	err := v.Struct(auth)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.ValidationErrors{models.FieldGeneral: err.Error()}
	}

	out := make(models.ValidationErrors, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := FieldMessages[fe.Field()]
		if !ok {
			msg = fmt.Sprintf("Invalid %s", fe.Field())
		}
		out[fe.Field()] = msg
	}
	return out
}

// Build validates the preconditions and produces the payload. Nothing is sent on error.
// Credentials belonging to the inactive mode are cleared.
func (b *Builder) Build(tree models.SelectionTree, auth models.AuthConfig) (*models.RunRequest, error) {
	if fields := ValidateAuth(b.validate, auth); len(fields) > 0 {
		return nil, &models.ValidationError{Fields: fields, Message: MsgFillAuth}
	}

	selected := make(map[string]bool)
	for _, stateName := range tree.CheckedStateNames() {
		if key, ok := keyByStateName[stateName]; ok {
			selected[key] = true
		}
	}
	if len(selected) == 0 {
		return nil, &models.ValidationError{
			Fields:  models.ValidationErrors{models.FieldGeneral: MsgCheckOneTest},
			Message: MsgCheckOneTest,
		}
	}

	userName, password, token := auth.UserName, auth.Password, auth.Token
	switch auth.Mode {
	case models.AuthModeBasic:
		token = ""
	case models.AuthModeBearer:
		userName, password = "", ""
	}

	return models.NewRunRequest(auth.Endpoint, userName, password, token, OperationKeys(), selected), nil
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
